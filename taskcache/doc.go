// Package taskcache memoizes the results of expensive pipeline
// transformations. It fingerprints input artifacts, consults a persistent
// store, and either reconstructs a previously captured result or runs the
// wrapped task, captures its output, and stores it for next time.
//
// Two cardinality modes are supported: one-to-one, where each input artifact
// is cached independently, and many-to-many, where an ordered batch of
// inputs is one cache unit producing one batch of outputs.
package taskcache
