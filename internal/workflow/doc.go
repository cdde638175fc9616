// Package workflow runs submitted jobs through the six revoice stages.
//
// The Manager launches one supervised goroutine per job and hands back a Task
// handle. Inside the task the stages run strictly in order (metadata, extract,
// transcribe, translate, synthesize, upload) against long-lived capability
// collaborators, and every transition is written back through the job store:
// processing before the first stage, the stage name as each one starts, then
// done with the uploader's references or error with the failure message.
// Failures and panics never leave the task.
//
// Start performs restart recovery and Stop cancels in-flight work, recording
// the interrupted jobs as failed so no record is left processing.
package workflow
