// Package playlist reads extended M3U playlist files and computes the statistics the updater publishes.
//
// [Parse] accepts both plain M3U (one URL per line) and extended M3U, where each media line is preceded by
//
//	#EXTINF:<duration> key="value" ...,<title>
//
// Attribute values are kept verbatim. A group-title holding several groups separated by ";" counts
// toward each of them in [Compute].
package playlist
