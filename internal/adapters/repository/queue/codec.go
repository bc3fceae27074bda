package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/trebuchet-org/txq/internal/domain/models"
)

const (
	// RecordVersion is the current persisted record layout
	RecordVersion = 2

	// bigIntTag prefixes arbitrary-precision integers encoded as strings
	bigIntTag = "$bigint:"

	// escapePrefix marks strings that legitimately start with '$'
	escapePrefix = "$"
)

// record is the single persisted queue state
type record struct {
	Version             int        `json:"version"`
	Transactions        []txRecord `json:"transactions"`
	ActiveTransactionID *string    `json:"activeTransactionId"`
}

type approvalRecord struct {
	Token   string    `json:"token"`
	Spender string    `json:"spender"`
	Amount  taggedInt `json:"amount"`
}

type txRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ChainID  uint64 `json:"chainId"`
	Type     string `json:"type"`

	ContractAddress string            `json:"contractAddress"`
	FunctionName    string            `json:"functionName"`
	ABI             string            `json:"abi"`
	Args            []json.RawMessage `json:"args"`
	Value           taggedInt         `json:"value"`
	GasLimit        taggedInt         `json:"gasLimit"`

	TokenAddress     string    `json:"tokenAddress,omitempty"`
	TokenDecimals    uint8     `json:"tokenDecimals,omitempty"`
	TokenAmount      taggedInt `json:"tokenAmount"`
	TokenSymbol      string    `json:"tokenSymbol,omitempty"`
	TokenOutAddress  string    `json:"tokenOutAddress,omitempty"`
	TokenOutDecimals uint8     `json:"tokenOutDecimals,omitempty"`
	TokenOutAmount   taggedInt `json:"tokenOutAmount"`
	TokenOutSymbol   string    `json:"tokenOutSymbol,omitempty"`

	Approval *approvalRecord `json:"approval,omitempty"`

	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	TxHash         string    `json:"txHash,omitempty"`
	ApprovalTxHash string    `json:"approvalTxHash,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// taggedInt is a nullable big integer persisted as "$bigint:<decimal>"
type taggedInt struct {
	v *big.Int
}

func (t taggedInt) MarshalJSON() ([]byte, error) {
	if t.v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(bigIntTag + t.v.String())
}

func (t *taggedInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.v = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected tagged integer: %w", err)
	}
	v, err := parseTaggedInt(s)
	if err != nil {
		return err
	}
	t.v = v
	return nil
}

func parseTaggedInt(s string) (*big.Int, error) {
	if !strings.HasPrefix(s, bigIntTag) {
		return nil, fmt.Errorf("missing %q prefix in %q", bigIntTag, s)
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(s, bigIntTag), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

// encodeRecord serializes the queue state
func encodeRecord(txs []*models.QueueTransaction, activeID string) ([]byte, error) {
	rec := record{
		Version:      RecordVersion,
		Transactions: make([]txRecord, 0, len(txs)),
	}
	if activeID != "" {
		rec.ActiveTransactionID = &activeID
	}

	for _, tx := range txs {
		r, err := toRecord(tx)
		if err != nil {
			return nil, fmt.Errorf("failed to encode transaction %s: %w", tx.ID, err)
		}
		rec.Transactions = append(rec.Transactions, r)
	}

	return json.MarshalIndent(rec, "", "  ")
}

// decodeRecord parses a persisted queue state, migrating older layouts
func decodeRecord(data []byte) ([]*models.QueueTransaction, string, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, "", fmt.Errorf("failed to parse queue record: %w", err)
	}

	switch {
	case rec.Version == 0 || rec.Version == 1:
		migrateV1(&rec)
	case rec.Version > RecordVersion:
		return nil, "", fmt.Errorf("unsupported queue record version %d", rec.Version)
	}

	txs := make([]*models.QueueTransaction, 0, len(rec.Transactions))
	for _, r := range rec.Transactions {
		tx, err := fromRecord(r)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode transaction %s: %w", r.ID, err)
		}
		txs = append(txs, tx)
	}

	activeID := ""
	if rec.ActiveTransactionID != nil {
		activeID = *rec.ActiveTransactionID
	}
	return txs, activeID, nil
}

// migrateV1 upgrades records written before the status set was unified:
// freshly queued entries used "queued" where "pending" is now canonical.
func migrateV1(rec *record) {
	for i := range rec.Transactions {
		if rec.Transactions[i].Status == string(models.StatusQueued) {
			rec.Transactions[i].Status = string(models.StatusPending)
		}
	}
	rec.Version = RecordVersion
}

func toRecord(tx *models.QueueTransaction) (txRecord, error) {
	r := txRecord{
		ID:               tx.ID,
		Title:            tx.Title,
		Subtitle:         tx.Subtitle,
		ChainID:          tx.ChainID,
		Type:             string(tx.Type),
		ContractAddress:  tx.ContractAddress,
		FunctionName:     tx.FunctionName,
		ABI:              tx.ABI,
		Value:            taggedInt{tx.Value},
		GasLimit:         taggedInt{tx.GasLimit},
		TokenAddress:     tx.TokenAddress,
		TokenDecimals:    tx.TokenDecimals,
		TokenAmount:      taggedInt{tx.TokenAmount},
		TokenSymbol:      tx.TokenSymbol,
		TokenOutAddress:  tx.TokenOutAddress,
		TokenOutDecimals: tx.TokenOutDecimals,
		TokenOutAmount:   taggedInt{tx.TokenOutAmount},
		TokenOutSymbol:   tx.TokenOutSymbol,
		Status:           string(tx.Status),
		Error:            tx.Error,
		TxHash:           tx.TxHash,
		ApprovalTxHash:   tx.ApprovalTxHash,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
	}

	if tx.Approval != nil {
		r.Approval = &approvalRecord{
			Token:   tx.Approval.Token,
			Spender: tx.Approval.Spender,
			Amount:  taggedInt{tx.Approval.Amount},
		}
	}

	if tx.Args != nil {
		r.Args = make([]json.RawMessage, 0, len(tx.Args))
		for i, arg := range tx.Args {
			encoded, err := encodeValue(arg)
			if err != nil {
				return txRecord{}, fmt.Errorf("arg %d: %w", i, err)
			}
			raw, err := json.Marshal(encoded)
			if err != nil {
				return txRecord{}, fmt.Errorf("arg %d: %w", i, err)
			}
			r.Args = append(r.Args, raw)
		}
	}

	return r, nil
}

func fromRecord(r txRecord) (*models.QueueTransaction, error) {
	tx := &models.QueueTransaction{
		ID: r.ID,
		Draft: models.Draft{
			Title:            r.Title,
			Subtitle:         r.Subtitle,
			ChainID:          r.ChainID,
			Type:             models.TransactionType(r.Type),
			ContractAddress:  r.ContractAddress,
			FunctionName:     r.FunctionName,
			ABI:              r.ABI,
			Value:            r.Value.v,
			GasLimit:         r.GasLimit.v,
			TokenAddress:     r.TokenAddress,
			TokenDecimals:    r.TokenDecimals,
			TokenAmount:      r.TokenAmount.v,
			TokenSymbol:      r.TokenSymbol,
			TokenOutAddress:  r.TokenOutAddress,
			TokenOutDecimals: r.TokenOutDecimals,
			TokenOutAmount:   r.TokenOutAmount.v,
			TokenOutSymbol:   r.TokenOutSymbol,
		},
		Status:         models.Status(r.Status),
		Error:          r.Error,
		TxHash:         r.TxHash,
		ApprovalTxHash: r.ApprovalTxHash,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}

	if !tx.Status.IsValid() {
		return nil, fmt.Errorf("unknown status %q", r.Status)
	}

	if r.Approval != nil {
		tx.Approval = &models.ApprovalConfig{
			Token:   r.Approval.Token,
			Spender: r.Approval.Spender,
			Amount:  r.Approval.Amount.v,
		}
	}

	if r.Args != nil {
		tx.Args = make([]any, 0, len(r.Args))
		for i, raw := range r.Args {
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			arg, err := decodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			tx.Args = append(tx.Args, arg)
		}
	}

	return tx, nil
}

// encodeValue rewrites a call argument into plain JSON values. Integers of
// any width become tagged strings and '$'-prefixed strings are escaped.
//
// Values survive a round trip exactly but not their Go types: native int and
// uint widths come back as *big.Int, and so does a float64 holding an integral
// value, since JSON cannot tell 3.0 from 3. Non-integral floats stay float64.
func encodeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *big.Int:
		if val == nil {
			return nil, nil
		}
		return bigIntTag + val.String(), nil
	case big.Int:
		return bigIntTag + val.String(), nil
	case string:
		if strings.HasPrefix(val, escapePrefix) {
			return escapePrefix + val, nil
		}
		return val, nil
	case bool, float32, float64:
		return val, nil
	case json.Number:
		if i, ok := new(big.Int).SetString(val.String(), 10); ok {
			return bigIntTag + i.String(), nil
		}
		return val, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			enc, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			enc, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return bigIntTag + big.NewInt(rv.Int()).String(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return bigIntTag + new(big.Int).SetUint64(rv.Uint()).String(), nil
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			enc, err := encodeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported argument type %T", v)
}

// decodeValue reverses encodeValue on a value decoded with UseNumber. Every
// integral number decodes to *big.Int.
func decodeValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		switch {
		case strings.HasPrefix(val, bigIntTag):
			return parseTaggedInt(val)
		case strings.HasPrefix(val, escapePrefix+escapePrefix):
			return strings.TrimPrefix(val, escapePrefix), nil
		}
		return val, nil
	case json.Number:
		if i, ok := new(big.Int).SetString(val.String(), 10); ok {
			return i, nil
		}
		return val.Float64()
	case []any:
		for i, item := range val {
			dec, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			val[i] = dec
		}
		return val, nil
	case map[string]any:
		for k, item := range val {
			dec, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			val[k] = dec
		}
		return val, nil
	}
	return v, nil
}
