// Package services wraps the external systems the pipeline talks to.
//
// # Processes
//
// All subprocesses go through the [Executor] interface. [CommandExecutor] is the
// production implementation; tests substitute a recorder.
//
// [GitService] drives the git binary for checkout, staging, commit and push.
// Credentials are passed as an HTTP extra header and redacted from logs.
//
// [ScriptRunner] runs the configured statistics command with a single
// --force-update=<bool> argument appended.
//
// # Publishing
//
// [Publisher] stages everything, commits once when the tree differs from HEAD
// and always pushes.
//
// # HTTP
//
// [APIService] performs raw requests against a base URL. [PurgeService] builds on
// it to issue rate limited CDN purge requests after a fixed delay; failures are
// logged and never returned. [GitHubService] dispatches workflow runs using an
// oauth2 static token client.
//
// # Errors
//
//   - [shared.ErrScriptFailed] : statistics command exited nonzero
//   - [shared.ErrCommitFailed], [shared.ErrPushFailed] : publish failures
//   - [shared.ErrCheckoutFailed] : clone failed
//   - [shared.ErrAPIRequest] : HTTP request failed or returned an unexpected status
package services
