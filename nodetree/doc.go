package nodetree

/*

# Probability interval tree

A Tree is the navigable structure a zooming text entry view is drawn from.
Every Node owns the interval [Lower, Upper) of the normalization space and the
context of the text leading to it. Populating a node asks the model for a
probability vector over the node's range and carves one child per symbol with
nonzero probability, in symbol order, from a running sum:

	lower                                                          upper
	|----- sym 1 -----|-- sym 2 --|---------- sym 3 ----------|- 4 -|

so a populated node's children tile its interval exactly.

## View

The view maps the root's interval onto screen coordinates [0, ScreenY).
Frame zooms towards a target and pans it towards the commitment point (the
crosshair at ScreenY/2). When a child of the root covers the whole screen it
becomes the root: its siblings lose their children, the old root is kept on a
short chain so the view can back out, and the new root's subtree is rescaled to
the full normalization space so precision does not run out with depth.

## Output and commitment

The chain of nodes under the crosshair, down to the smallest one still
MinSize on screen, is the written text. Nodes joining the chain are output,
nodes leaving it are undone, each exactly once per transition. A node is
committed, once only, when it becomes the root. Committed symbols can
optionally be learnt by the model.

## Budget

Each frame a Policy bounds the work: populated nodes that are off the output
chain are collapsed smallest first while the tree is over budget, then at most
MaxExpansions of the largest visible leaves are populated. The leaf under the
crosshair is always populated, even beyond budget.
*/
