// Package object resolves names against live Go values and invokes them.
//
// It is the traversal half of the web service: a URL segment or a JSON-RPC
// method name is looked up on a target with Attr, and a resolved value is
// turned into something invocable with AsCallable.
//
// Host types can take full control of what they expose by implementing
// Attributer. Everything else is resolved by reflection, in this order:
//
//   - exported methods, matching "stop", "Stop" or "get_stats" to Stop and
//     GetStats;
//   - struct fields, by json tag or Go name;
//   - map entries, by key;
//   - slice and array elements, by decimal index.
//
// Names that are empty or start with an underscore never resolve.
package object
