package channel

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a segmentation_channels mapping, keeping the role
// order of the document. A scalar is a SingleName, a sequence a CandidateList
// and a mapping of channel id to flag a FlagTable.
func (r *Request) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Wrapf(ErrSelectionAmbiguous, "line %d: segmentation channels must be a mapping", node.Line)
	}

	entries := make([]RoleSelection, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		sel, err := decodeSelection(value)
		if err != nil {
			return errors.Wrapf(err, "role %q", key.Value)
		}
		entries = append(entries, RoleSelection{Role: Role(key.Value), Selection: sel})
	}
	r.Entries = entries

	return nil
}

func decodeSelection(node *yaml.Node) (Selection, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return SingleName(node.Value), nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return nil, errors.Wrapf(ErrSelectionAmbiguous, "line %d: %v", node.Line, err)
		}

		return CandidateList(list), nil
	case yaml.MappingNode:
		table := make(FlagTable, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			table = append(table, FlagRow{ID: node.Content[i].Value, Flag: IsTruthy(node.Content[i+1].Value)})
		}

		return table, nil
	default:
		return nil, errors.Wrapf(ErrSelectionAmbiguous, "line %d: unsupported selection", node.Line)
	}
}

// MarshalYAML encodes the request as a mapping in role order.
func (r Request) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range r.Entries {
		value := &yaml.Node{}
		switch sel := entry.Selection.(type) {
		case SingleName:
			value.Kind = yaml.ScalarNode
			value.Value = string(sel)
		case CandidateList:
			value.Kind = yaml.SequenceNode
			for _, c := range sel {
				value.Content = append(value.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: c})
			}
		case FlagTable:
			value.Kind = yaml.MappingNode
			for _, row := range sel {
				flag := "no"
				if row.Flag {
					flag = "yes"
				}
				value.Content = append(value.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: row.ID},
					&yaml.Node{Kind: yaml.ScalarNode, Value: flag, Style: yaml.DoubleQuotedStyle},
				)
			}
		default:
			return nil, errors.Errorf("role %q: unsupported selection %T", entry.Role, entry.Selection)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: string(entry.Role)}, value)
	}

	return node, nil
}
