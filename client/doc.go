/*
Package client defines the task source and the reporters of the judger.

A Client delivers tasks, a Reporter receives the progress and the final
result of a task. Reporters are implemented by the sub packages:

	resultfile: writes result.yml
	console:    prints the per case lines
	natsclient: publishes progress messages to NATS
*/
package client
