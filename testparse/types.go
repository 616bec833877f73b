package testparse

// TestNode is one level of the test result hierarchy: the root, a
// package, a class, or a single test method at the leaves.
type TestNode struct {
	Name     string
	Children []*TestNode

	NumTestsPassed int
	NumTestsFailed int

	// ErrorMessage holds the failure output for a failed leaf test.
	ErrorMessage string
}

// TestAnalysis is the outcome of one analysis pass. Error is set, and
// Root is a zero-count placeholder, when the test tooling produced no
// report at all (e.g. the code didn't compile). That is distinct from
// tests that ran and failed.
type TestAnalysis struct {
	Root  *TestNode
	Error string
}

// child returns the child with the given name, creating it if missing.
// Insertion order of children is preserved.
func (n *TestNode) child(name string) *TestNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	c := &TestNode{Name: name}
	n.Children = append(n.Children, c)
	return c
}

// CountTests recomputes pass/fail totals bottom-up so that every inner
// node's counts equal the sum of its children's.
func (n *TestNode) CountTests() {
	if len(n.Children) == 0 {
		return
	}
	n.NumTestsPassed = 0
	n.NumTestsFailed = 0
	for _, c := range n.Children {
		c.CountTests()
		n.NumTestsPassed += c.NumTestsPassed
		n.NumTestsFailed += c.NumTestsFailed
	}
}
