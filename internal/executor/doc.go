// Package executor defines the step executor contract and the
// built-in executors that invoke generation providers.
//
// An Executor performs one step type. The run coordinator resolves
// params and the model descriptor before calling Execute; executors
// never read the run scope themselves.
package executor
