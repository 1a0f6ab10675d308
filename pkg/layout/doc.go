// Package layout translates a graph description into absolute pixel
// coordinates.
//
// # Policies
//
// Two policies exist, matching the two shapes of [graph.Description]:
//
//   - [PolicyGrid] computes positions from level membership. Clusters run left
//     to right; inside a cluster each level is a horizontal band at
//     level*LevelHeight + TopMargin, and the nodes of a level are spread
//     evenly across the width needed by the cluster's widest level.
//   - [PolicyPrecomputed] keeps the coordinates the backend computed and only
//     stacks clusters top to bottom, offsetting every node's y by the heights
//     of the clusters above it.
//
// [PolicyAuto] (the default) picks the policy from the description's shape.
//
// # Coordinates
//
// Positions are anchor coordinates: the top-left corner of the node's box,
// the way a CSS `left`/`top` pair places an absolutely positioned element.
// With N > 1 nodes on a level the first anchor sits on the cluster's left
// bound and the last anchor sits on its right bound, so the last box
// overhangs the bound by one node width. The horizontal gap between clusters
// includes that overhang.
//
// # Tokens
//
// [Token] maps identities to DOM-safe element ids. It replaces every
// character outside [A-Za-z0-9] with an underscore, so distinct identities
// can collide ("a.b" and "a-b" both become "a_b"). Collisions are not
// detected.
package layout
