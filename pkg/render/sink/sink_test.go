package sink

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
)

const testGraph = `{
  "clusters": [{"0": ["team-a"], "1": ["team-b", "team-c"]}],
  "edges": [
    {"from": "team-a", "to": "team-b", "type": "dep"},
    {"from": "team-a", "to": "team-c", "type": "copy"}
  ]
}`

func fixture(t *testing.T, src string) (*graph.Description, *layout.Result) {
	t.Helper()
	d, err := graph.UnmarshalDescription([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	r, err := layout.Compute(d, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return d, r
}

func TestRenderSVG(t *testing.T) {
	d, r := fixture(t, testGraph)
	svg := string(RenderSVG(d, r))

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Fatal("output is not a single svg element")
	}
	for _, want := range []string{
		`id="node-team_a"`,
		`id="edge-team_a-team_b"`,
		`stroke="#FF0000"`,
		`stroke="#32CD32"`,
		`>copy</text>`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %s", want)
		}
	}
	if strings.Contains(svg, `class="legend"`) {
		t.Error("legend drawn without WithLegend")
	}
}

func TestRenderSVGLegendAndLabels(t *testing.T) {
	d, r := fixture(t, testGraph)
	labeler, _ := graph.NewLabeler(`^team-(.*)$`, 1)
	svg := string(RenderSVG(d, r, WithLegend(), WithLabeler(labeler)))

	for _, want := range []string{"Dependency Graph", "Copy Artifact", `>a</text>`, "<title>team-a</title>"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestRenderSVGLinks(t *testing.T) {
	src := `{
	  "clusters": [{"nodes": [{"name": "a", "url": "https://ci/job/a?x=1&y=2", "x": 0, "y": 0}], "vSize": 90}],
	  "edges": []
	}`
	d, r := fixture(t, src)

	if svg := string(RenderSVG(d, r)); !strings.Contains(svg, `href="https://ci/job/a?x=1&amp;y=2"`) {
		t.Errorf("missing escaped link in:\n%s", svg)
	}
	if svg := string(RenderSVG(d, r, WithoutLinks())); strings.Contains(svg, "<a ") {
		t.Error("WithoutLinks still wrote an anchor")
	}
}

func TestRenderSVGEscapesNames(t *testing.T) {
	d, r := fixture(t, `{"clusters": [{"0": ["<b>&job"]}], "edges": []}`)
	svg := string(RenderSVG(d, r))
	if strings.Contains(svg, "<b>&job") {
		t.Error("node name written unescaped")
	}
}

func TestEdgeEndpointsStayOnBorders(t *testing.T) {
	r := &layout.Result{NodeWidth: 80, NodeHeight: 40}
	from := layout.Placement{X: 0, Y: 0}
	to := layout.Placement{X: 0, Y: 120}

	x1, y1, x2, y2 := edgeEndpoints(r, from, to)
	if x1 != 40 || x2 != 40 {
		t.Errorf("vertical edge x = %v, %v; want 40", x1, x2)
	}
	if y1 != 40 || y2 != 120 {
		t.Errorf("vertical edge y = %v..%v; want 40..120", y1, y2)
	}
}

func TestRenderJSON(t *testing.T) {
	d, r := fixture(t, testGraph)
	labeler, _ := graph.NewLabeler(`^team-(.*)$`, 1)

	data, err := RenderJSON(d, r, WithJSONLabeler(labeler))
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		Policy string `json:"policy"`
		Nodes  []struct {
			Name string  `json:"name"`
			X    float64 `json:"x"`
		} `json:"nodes"`
		Labels map[string]string `json:"labels"`
		Edges  []struct {
			Type      string `json:"type"`
			Deletable bool   `json:"deletable"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Policy != "grid" || len(out.Nodes) != 3 {
		t.Errorf("policy %q, %d nodes", out.Policy, len(out.Nodes))
	}
	if out.Labels["team-b"] != "b" {
		t.Errorf("labels = %v", out.Labels)
	}
	if len(out.Edges) != 2 || !out.Edges[0].Deletable || out.Edges[1].Deletable {
		t.Errorf("edges = %+v", out.Edges)
	}
}

func TestRenderHTML(t *testing.T) {
	d, r := fixture(t, testGraph)

	var buf bytes.Buffer
	if err := RenderHTML(&buf, d, r, WithTitle("ci graph")); err != nil {
		t.Fatal(err)
	}
	page := buf.String()
	for _, want := range []string{"<html", "ci graph", "team-a", "Dependency Graph", "Copy Artifact", "#32CD32"} {
		if !strings.Contains(page, want) {
			t.Errorf("html missing %q", want)
		}
	}
}
