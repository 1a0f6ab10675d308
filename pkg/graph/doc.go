// Package graph provides the Graph Description: the job-dependency graph a
// backend serves as graph.json, and the shared types every other depview
// package consumes.
//
// # Shapes
//
// Two generations of the description exist and both are accepted. The
// computed-grid shape maps level indexes to node names and leaves
// positioning to the layout engine:
//
//	{
//	  "clusters": [{"0": ["build"], "1": ["test-a", "test-b"]}],
//	  "edges":    [{"from": "build", "to": "test-a", "type": "dep"}]
//	}
//
// The precomputed shape carries coordinates per node plus the cluster's
// bounding size:
//
//	{
//	  "clusters": [{
//	    "nodes": [{"name": "build", "fullName": "team/build", "url": "job/build/", "x": 0, "y": 0}],
//	    "hSize": 300,
//	    "vSize": 90
//	  }],
//	  "edges": [...]
//	}
//
// All clusters of a description must share one shape.
//
// # Identity
//
// A node's Name is its identity inside the description: edges reference it
// and it must be unique across the whole graph. FullName, when present, is
// the identity the backend expects in edge mutation paths (see
// [Description.BackendIdentity]).
//
// # Validation
//
// [UnmarshalDescription] and friends return an [errors.ErrCodeInvalidGraph]
// error for any malformed input: undecodable JSON, mixed shapes, duplicate
// names, edges naming unknown nodes, and edges without a known type. A
// malformed description is fatal to rendering; callers surface it instead of
// drawing a partial graph.
package graph
