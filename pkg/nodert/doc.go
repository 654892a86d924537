// Package nodert is the runtime support library imported by generated graph
// code. The interpreter calls the same functions, so both execution paths
// share one definition of every operation.
package nodert
