// Package scheduler provides the serialized execution context for registry
// mutations: a bounded queue fed by any goroutine, drained by exactly one
// worker. FIFO submission order is the contract that makes concurrent
// add/remove requests for the same key resolve deterministically.
package scheduler
