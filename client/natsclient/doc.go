/*
Package natsclient publishes judge progress to a NATS subject.

Encoding: JSON, one message per progress event

	{"runId": "...", "type": "compiled", "compile": {...}}
	{"runId": "...", "type": "progress", "case": {...}}
	{"runId": "...", "type": "finished", "result": {...}}
*/
package natsclient
