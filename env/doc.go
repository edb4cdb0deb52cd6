// Package env provides the linux sandbox environment for envexec.
//
// Every process is started with fork / exec as the leader of a new process
// group with resource rlimits applied. Confined processes additionally get
// new namespaces and a private root built from mount.yaml, which is removed
// once the process is reaped.
package env
