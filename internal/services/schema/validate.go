package schema

import (
	"encoding/json"
	"fmt"
)

const maxNodeStringChars = 5000

// validateGraph checks the assembled document before it is stored: the graph
// must be non-empty, every node needs @type, and no string value may exceed
// the sanity bound. It returns the list of issues found.
func validateGraph(graph []node) []string {
	var issues []string
	if len(graph) == 0 {
		return []string{"graph is empty"}
	}
	for i, n := range graph {
		if _, ok := n["@type"].(string); !ok {
			issues = append(issues, fmt.Sprintf("node %d has no @type", i))
		}
		issues = append(issues, oversizedStrings(n, fmt.Sprintf("node %d", i))...)
	}
	return issues
}

func oversizedStrings(v any, path string) []string {
	var issues []string
	switch val := v.(type) {
	case string:
		if len(val) > maxNodeStringChars {
			issues = append(issues, fmt.Sprintf("%s: string of %d chars exceeds %d", path, len(val), maxNodeStringChars))
		}
	case node:
		for k, child := range val {
			issues = append(issues, oversizedStrings(child, path+"."+k)...)
		}
	case []node:
		for i, child := range val {
			issues = append(issues, oversizedStrings(child, fmt.Sprintf("%s[%d]", path, i))...)
		}
	case []string:
		for i, child := range val {
			issues = append(issues, oversizedStrings(child, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}
	return issues
}

// marshalGraph wraps the node list in the @context envelope and renders the
// final JSON-LD payload.
func marshalGraph(graph []node) (string, error) {
	payload, err := json.Marshal(node{
		"@context": "https://schema.org",
		"@graph":   graph,
	})
	if err != nil {
		return "", fmt.Errorf("marshal json-ld: %w", err)
	}
	return string(payload), nil
}
