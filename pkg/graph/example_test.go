package graph_test

import (
	"fmt"

	"github.com/matzehuels/depview/pkg/graph"
)

func ExampleUnmarshalDescription() {
	d, err := graph.UnmarshalDescription([]byte(`{
	  "clusters": [{"0": ["build"], "1": ["test"]}],
	  "edges": [{"from": "build", "to": "test", "type": "dep"}]
	}`))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(d.Shape(), d.NodeCount(), d.Edges[0])
	// Output: grid 2 build -> test
}
