package testparse

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const rootNodeName = "tests"

// junit xml report shapes, as written by surefire-style runners.
// A report file holds either a single <testsuite> or a <testsuites> wrapper.
type xmlTestSuites struct {
	XMLName xml.Name       `xml:"testsuites"`
	Suites  []xmlTestSuite `xml:"testsuite"`
}

type xmlTestSuite struct {
	XMLName xml.Name      `xml:"testsuite"`
	Name    string        `xml:"name,attr"`
	Cases   []xmlTestCase `xml:"testcase"`
}

type xmlTestCase struct {
	Name      string      `xml:"name,attr"`
	ClassName string      `xml:"classname,attr"`
	Failure   *xmlFailure `xml:"failure"`
	Error     *xmlFailure `xml:"error"`
	Skipped   *struct{}   `xml:"skipped"`
}

type xmlFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// AnalyzeReportDir parses every junit xml report under dir into one tree
// keyed by package / class / method. Tests whose fully qualified name is
// in excluded are dropped before the tree is built; this keeps a hidden
// reference suite from being double-counted as student work.
//
// A missing or empty report directory yields a zero-count root and a
// diagnostic in TestAnalysis.Error, because "the runner produced no
// output" is not the same as "zero tests ran".
func AnalyzeReportDir(dir string, excluded map[string]struct{}) TestAnalysis {
	root := &TestNode{Name: rootNodeName}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return TestAnalysis{
			Root:  root,
			Error: fmt.Sprintf("test runner produced no report at %s: %v", dir, err),
		}
	}

	var reports []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		reports = append(reports, filepath.Join(dir, e.Name()))
	}
	sort.Strings(reports)

	if len(reports) == 0 {
		return TestAnalysis{
			Root:  root,
			Error: fmt.Sprintf("test runner produced no report at %s", dir),
		}
	}

	for _, path := range reports {
		suites, err := readReportFile(path)
		if err != nil {
			return TestAnalysis{
				Root:  &TestNode{Name: rootNodeName},
				Error: fmt.Sprintf("unreadable test report %s: %v", filepath.Base(path), err),
			}
		}
		for _, suite := range suites {
			addSuite(root, suite, excluded)
		}
	}

	root.CountTests()
	return TestAnalysis{Root: root}
}

func readReportFile(path string) ([]xmlTestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapper xmlTestSuites
	if err := xml.Unmarshal(data, &wrapper); err == nil {
		return wrapper.Suites, nil
	}

	var single xmlTestSuite
	if err := xml.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []xmlTestSuite{single}, nil
}

func addSuite(root *TestNode, suite xmlTestSuite, excluded map[string]struct{}) {
	for _, tc := range suite.Cases {
		if tc.Skipped != nil {
			continue
		}

		className := tc.ClassName
		if className == "" {
			className = suite.Name
		}
		qualified := className + "." + tc.Name
		if _, ok := excluded[qualified]; ok {
			continue
		}
		if _, ok := excluded[tc.Name]; ok {
			continue
		}

		node := root
		for _, segment := range strings.Split(className, ".") {
			if segment == "" {
				continue
			}
			node = node.child(segment)
		}
		leaf := node.child(tc.Name)

		if tc.Failure != nil || tc.Error != nil {
			leaf.NumTestsFailed = 1
			leaf.ErrorMessage = failureMessage(tc)
		} else {
			leaf.NumTestsPassed = 1
		}
	}
}

func failureMessage(tc xmlTestCase) string {
	f := tc.Failure
	if f == nil {
		f = tc.Error
	}
	msg := strings.TrimSpace(f.Message)
	body := strings.TrimSpace(f.Body)
	if msg == "" {
		return body
	}
	if body == "" {
		return msg
	}
	return msg + "\n" + body
}
