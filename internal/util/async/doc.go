// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunParallel] executes independent operations concurrently and returns
// every failure joined into one error. It is used to query the provider
// tooling of several clouds at once, where one slow or broken CLI must not
// hide the results of the others.
package async
