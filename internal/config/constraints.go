package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reserved top-level keys in a constraints file. Anything else starting
// with the ignore prefix is skipped when iterating real collections.
const (
	// IgnorePrefix marks reserved keys, and collections the validation
	// runner skips without counting them as processed.
	IgnorePrefix = "_"

	reservedAliases = "_aliases"
	reservedEmail   = "_email"
)

// IsIgnored reports whether a collection name carries the ignore prefix
// and should be skipped during validation.
func IsIgnored(name string) bool {
	return strings.HasPrefix(name, IgnorePrefix)
}

// CollectionConstraints is one collection's configured constraint
// expressions, in file order.
type CollectionConstraints struct {
	Name        string
	Expressions []string
}

// constraintsFile is the parsed form of a constraints document: a mapping
// from collection name to a sequence of constraint-expression sequences,
// plus the reserved alias and email blocks.
type constraintsFile struct {
	Collections []CollectionConstraints
	Aliases     map[string]string
	Email       *EmailSpec
}

// loadConstraintsFile reads and parses a constraints file. Collection order
// follows document order, which is why this walks yaml nodes instead of
// unmarshalling into a map.
func loadConstraintsFile(path string) (*constraintsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindUnreadableFile, path, err.Error())
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, newError(KindUnreadableFile, path, err.Error())
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, newError(KindUnreadableFile, path, "expected a top-level mapping")
	}
	doc := root.Content[0]

	out := &constraintsFile{}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode, valNode := doc.Content[i], doc.Content[i+1]
		key := keyNode.Value

		switch {
		case key == reservedAliases:
			aliases := make(map[string]string)
			if err := valNode.Decode(&aliases); err != nil {
				return nil, newError(KindMalformedAliases, key, err.Error())
			}
			out.Aliases = aliases
		case key == reservedEmail:
			spec, err := decodeEmailBlock(valNode)
			if err != nil {
				return nil, err
			}
			out.Email = spec
		case strings.HasPrefix(key, IgnorePrefix):
			// Unrecognized reserved key; not a collection.
		default:
			var groups [][]string
			if err := valNode.Decode(&groups); err != nil {
				return nil, newError(KindUnreadableFile, path,
					fmt.Sprintf("collection %q: expected a sequence of constraint lists: %v", key, err))
			}
			cc := CollectionConstraints{Name: key}
			for _, g := range groups {
				cc.Expressions = append(cc.Expressions, g...)
			}
			out.Collections = append(out.Collections, cc)
		}
	}
	return out, nil
}

// emailBlock is the reserved-key mapping form of an email spec.
type emailBlock struct {
	From    string    `yaml:"from"`
	To      yaml.Node `yaml:"to"`
	Host    string    `yaml:"host"`
	Port    int       `yaml:"port"`
	Subject string    `yaml:"subject"`
}

func decodeEmailBlock(node *yaml.Node) (*EmailSpec, error) {
	var block emailBlock
	if err := node.Decode(&block); err != nil {
		return nil, newError(KindMalformedEmail, reservedEmail, err.Error())
	}
	if block.From == "" {
		return nil, newError(KindMalformedEmail, reservedEmail, "missing \"from\"")
	}

	// "to" may be a single address or a list.
	var to []string
	switch block.To.Kind {
	case yaml.ScalarNode:
		if block.To.Value != "" {
			to = []string{block.To.Value}
		}
	case yaml.SequenceNode:
		if err := block.To.Decode(&to); err != nil {
			return nil, newError(KindMalformedEmail, reservedEmail, err.Error())
		}
	}
	if len(to) == 0 {
		return nil, newError(KindMalformedEmail, reservedEmail, "missing \"to\"")
	}

	spec := &EmailSpec{
		From:    block.From,
		To:      to,
		Host:    block.Host,
		Port:    block.Port,
		Subject: block.Subject,
	}
	if spec.Port == 0 {
		spec.Port = DefaultSubmissionPort
	}
	return spec, nil
}
