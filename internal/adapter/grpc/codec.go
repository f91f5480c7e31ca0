package grpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow/internal/domain"
)

// Wire field names of the Backend API messages
const (
	fieldSuccess        = "success"
	fieldMessage        = "message"
	fieldData           = "data"
	fieldAccountNumber  = "account_number"
	fieldAccountName    = "account_name"
	fieldBankCode       = "bank_code"
	fieldAmount         = "amount"
	fieldNarration      = "narration"
	fieldPin            = "pin"
	fieldIdempotencyKey = "idempotency_key"
	fieldReference      = "reference"
	fieldBanks          = "banks"
	fieldCode           = "code"
	fieldName           = "name"
)

// malformed builds the error returned when a response cannot be decoded
func malformed(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	return &domain.APIError{Kind: domain.APIErrorMalformed, Message: err.Error(), Err: err}
}

// unwrapEnvelope returns the payload of a response.
// Responses may be wrapped as {success, message, data}; a false success flag
// is a business rejection carrying the backend's message.
func unwrapEnvelope(resp *structpb.Struct) (*structpb.Struct, error) {
	fields := resp.GetFields()
	if v, ok := fields[fieldSuccess]; ok {
		if _, isBool := v.GetKind().(*structpb.Value_BoolValue); isBool && !v.GetBoolValue() {
			return nil, &domain.APIError{Kind: domain.APIErrorRejected, Message: stringField(resp, fieldMessage)}
		}
	}
	if v, ok := fields[fieldData]; ok {
		if data := v.GetStructValue(); data != nil {
			return data, nil
		}
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			return nil, malformed("response data is not an object")
		}
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	return resp, nil
}

func stringField(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(kind.StringValue)
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue).String()
	default:
		return ""
	}
}

// decimalField accepts amounts sent as strings or numbers; a missing field is zero
func decimalField(s *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return decimal.Zero, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		if strings.TrimSpace(kind.StringValue) == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return decimal.Zero, malformed("invalid %s: %q", key, kind.StringValue)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	case *structpb.Value_NullValue:
		return decimal.Zero, nil
	default:
		return decimal.Zero, malformed("invalid %s type", key)
	}
}

func timeField(s *structpb.Struct, key string) (*time.Time, error) {
	raw := stringField(s, key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, malformed("invalid %s: %q", key, raw)
	}
	return &t, nil
}

func encodeVerifyRequest(identifier, routingCode string) (*structpb.Struct, error) {
	fields := map[string]interface{}{fieldAccountNumber: identifier}
	if routingCode != "" {
		fields[fieldBankCode] = routingCode
	}
	return structpb.NewStruct(fields)
}

func decodeVerifiedRecipient(data *structpb.Struct) *domain.VerifiedRecipient {
	return &domain.VerifiedRecipient{DisplayName: stringField(data, fieldAccountName)}
}

func encodeTransferRequest(req domain.TransferRequest) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		fieldAccountNumber:  req.RecipientIdentifier,
		fieldAmount:         req.Amount.StringFixed(2),
		fieldNarration:      req.Description,
		fieldPin:            req.Pin,
		fieldIdempotencyKey: req.IdempotencyKey.String(),
	}
	if req.RoutingCode != "" {
		fields[fieldBankCode] = req.RoutingCode
	}
	return structpb.NewStruct(fields)
}

// decodeTransactionRecord maps a response payload onto a TransactionRecord.
// A record without a reference is malformed.
func decodeTransactionRecord(data *structpb.Struct) (*domain.TransactionRecord, error) {
	record := &domain.TransactionRecord{
		Reference:           stringField(data, fieldReference),
		Type:                stringField(data, "type"),
		Status:              domain.ParseTransactionStatus(stringField(data, "status")),
		Description:         stringField(data, "description"),
		SessionID:           stringField(data, "session_id"),
		CounterpartyName:    stringField(data, "counterparty_name"),
		CounterpartyAccount: stringField(data, "counterparty_account"),
		CounterpartyBank:    stringField(data, "counterparty_bank"),
		CounterpartyBankID:  stringField(data, "counterparty_bank_code"),
	}
	if record.Reference == "" {
		return nil, malformed("transaction response has no reference")
	}

	var err error
	if record.Amount, err = decimalField(data, fieldAmount); err != nil {
		return nil, err
	}
	if record.Fee, err = decimalField(data, "fee"); err != nil {
		return nil, err
	}

	createdAt, err := timeField(data, "created_at")
	if err != nil {
		return nil, err
	}
	if createdAt != nil {
		record.CreatedAt = *createdAt
	}
	if record.CompletedAt, err = timeField(data, "completed_at"); err != nil {
		return nil, err
	}

	if err := record.Validate(); err != nil {
		return nil, malformed("invalid transaction record: %v", err)
	}
	return record, nil
}

func decodeBanks(data *structpb.Struct) ([]domain.Bank, error) {
	v, ok := data.GetFields()[fieldBanks]
	if !ok {
		return []domain.Bank{}, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, malformed("banks is not a list")
	}

	banks := make([]domain.Bank, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		entry := item.GetStructValue()
		if entry == nil {
			return nil, malformed("bank entry is not an object")
		}
		banks = append(banks, domain.Bank{
			Code: stringField(entry, fieldCode),
			Name: stringField(entry, fieldName),
		})
	}
	return banks, nil
}
