// Package trigger decides whether the statistics pipeline should run for a repository event.
//
// Two event kinds start a run:
//   - [Push] : at least one changed path matches the include globs (default "**.m3u") and none of the
//     exclude globs (default "stats/**"). A push never forces an update.
//   - [Dispatch] : a manual run; the force flag follows the force_update input.
//
// Globs use "/" as separator: "*" stays within one directory, "**" crosses directories. Include patterns
// prefixed with "!" are treated as excludes, matching the workflow paths syntax.
package trigger
