package nodelink_test

import (
	"fmt"

	"github.com/RalXYZ/cc99/pkg/render/nodelink"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

func ExampleToDOT() {
	root, _ := vistree.BuildJSON([]byte(`{"GlobalDeclaration": [{"Return": {"Identifier": "x"}}]}`))

	fmt.Print(nodelink.ToDOT(root, nodelink.Options{}))
	// Output:
	// digraph G {
	//   rankdir=TB;
	//   bgcolor="transparent";
	//   node [shape=box, style="rounded,filled", fillcolor=white, fontsize=14, margin="0.2,0.1"];
	//   ranksep=0.4;
	//   nodesep=0.25;
	//
	//   "0" [label="<program-root>", fillcolor=lightgrey, fontcolor=black];
	//   "1" [label="Return"];
	//   "2" [label="Identifier"];
	//
	//   "0" -> "1";
	//   "1" -> "2";
	// }
}

func ExampleToDOT_detailed() {
	root, _ := vistree.BuildJSON([]byte(`{"GlobalDeclaration": [{"Unary": ["PrefixIncrement", {"Identifier": "i"}]}]}`))

	dot := nodelink.ToDOT(root, nodelink.Options{Detailed: true})

	// The detailed DOT includes ids and attributes in every label
	fmt.Println(len(dot) > 0)
	// Output:
	// true
}
