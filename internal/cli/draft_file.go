package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/trebuchet-org/txq/internal/domain/models"
	"gopkg.in/yaml.v3"
)

// flexInt decodes an integer given as a number or as a decimal or 0x string
type flexInt struct {
	v *big.Int
}

func (f *flexInt) set(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		f.v = nil
		return nil
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return fmt.Errorf("invalid integer %q", s)
	}
	f.v = v
	return nil
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	return f.set(strings.Trim(string(data), `"`))
}

func (f *flexInt) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an integer", node.Line)
	}
	return f.set(node.Value)
}

type approvalFile struct {
	Token   string  `json:"token" yaml:"token"`
	Spender string  `json:"spender" yaml:"spender"`
	Amount  flexInt `json:"amount" yaml:"amount"`
}

// draftFile mirrors models.Draft with lenient integer fields
type draftFile struct {
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle" yaml:"subtitle"`
	ChainID  uint64 `json:"chainId" yaml:"chainId"`
	Type     string `json:"type" yaml:"type"`

	ContractAddress string  `json:"contractAddress" yaml:"contractAddress"`
	FunctionName    string  `json:"functionName" yaml:"functionName"`
	ABI             any     `json:"abi" yaml:"abi"`
	Args            []any   `json:"args" yaml:"args"`
	Value           flexInt `json:"value" yaml:"value"`
	GasLimit        flexInt `json:"gasLimit" yaml:"gasLimit"`

	TokenAddress     string  `json:"tokenAddress" yaml:"tokenAddress"`
	TokenDecimals    uint8   `json:"tokenDecimals" yaml:"tokenDecimals"`
	TokenAmount      flexInt `json:"tokenAmount" yaml:"tokenAmount"`
	TokenSymbol      string  `json:"tokenSymbol" yaml:"tokenSymbol"`
	TokenOutAddress  string  `json:"tokenOutAddress" yaml:"tokenOutAddress"`
	TokenOutDecimals uint8   `json:"tokenOutDecimals" yaml:"tokenOutDecimals"`
	TokenOutAmount   flexInt `json:"tokenOutAmount" yaml:"tokenOutAmount"`
	TokenOutSymbol   string  `json:"tokenOutSymbol" yaml:"tokenOutSymbol"`

	Approval *approvalFile `json:"approval" yaml:"approval"`
}

func (f draftFile) toDraft() (models.Draft, error) {
	abiJSON, err := abiString(f.ABI)
	if err != nil {
		return models.Draft{}, err
	}

	d := models.Draft{
		Title:            f.Title,
		Subtitle:         f.Subtitle,
		ChainID:          f.ChainID,
		Type:             models.TransactionType(strings.ToLower(f.Type)),
		ContractAddress:  f.ContractAddress,
		FunctionName:     f.FunctionName,
		ABI:              abiJSON,
		Args:             f.Args,
		Value:            f.Value.v,
		GasLimit:         f.GasLimit.v,
		TokenAddress:     f.TokenAddress,
		TokenDecimals:    f.TokenDecimals,
		TokenAmount:      f.TokenAmount.v,
		TokenSymbol:      f.TokenSymbol,
		TokenOutAddress:  f.TokenOutAddress,
		TokenOutDecimals: f.TokenOutDecimals,
		TokenOutAmount:   f.TokenOutAmount.v,
		TokenOutSymbol:   f.TokenOutSymbol,
	}
	if f.Approval != nil {
		d.Approval = &models.ApprovalConfig{
			Token:   f.Approval.Token,
			Spender: f.Approval.Spender,
			Amount:  f.Approval.Amount.v,
		}
	}
	if d.Title == "" {
		return models.Draft{}, fmt.Errorf("title is required")
	}
	return d, nil
}

// abiString accepts the ABI as a JSON string or as an inline array
func abiString(v any) (string, error) {
	switch abi := v.(type) {
	case nil:
		return "", nil
	case string:
		return abi, nil
	default:
		data, err := json.Marshal(abi)
		if err != nil {
			return "", fmt.Errorf("invalid abi: %w", err)
		}
		return string(data), nil
	}
}

// readDrafts loads one draft or a list of drafts from a YAML or JSON file.
// "-" reads YAML or JSON from stdin.
func readDrafts(path string, stdin io.Reader) ([]models.Draft, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var files []draftFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		files, err = decodeJSONDrafts(data)
	default:
		// YAML is a superset of JSON
		files, err = decodeYAMLDrafts(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s contains no transactions", path)
	}

	drafts := make([]models.Draft, len(files))
	for i, f := range files {
		d, err := f.toDraft()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		drafts[i] = d
	}
	return drafts, nil
}

func decodeJSONDrafts(data []byte) ([]draftFile, error) {
	data = bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if len(data) > 0 && data[0] == '[' {
		var files []draftFile
		if err := dec.Decode(&files); err != nil {
			return nil, err
		}
		return files, nil
	}

	var f draftFile
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return []draftFile{f}, nil
}

func decodeYAMLDrafts(data []byte) ([]draftFile, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var files []draftFile
		if err := root.Decode(&files); err != nil {
			return nil, err
		}
		return files, nil
	}

	var f draftFile
	if err := root.Decode(&f); err != nil {
		return nil, err
	}
	return []draftFile{f}, nil
}
