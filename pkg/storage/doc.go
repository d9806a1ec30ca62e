// Package storage maps queue identifiers to files under a single root
// directory and creates that directory on first use.
//
// Every queue lives at "<root>/<id><ext>" with a companion lock artifact at
// "<root>/<id><ext>.lock". The root directory, including missing parents, is
// created lazily by MakeDirIfNecessary. Creation of each directory is guarded
// by a filelock.Locker so several processes initialising the same root for the
// first time do not race, and the recursion depth is bounded to catch
// misconfigured roots before a whole tree of ancestors is created.
package storage
