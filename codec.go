package alphasms

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Request and response documents share the same root: a <package> element
// carrying the credentials as attributes, with one action child (message,
// status or balance). Unknown response fields are ignored by encoding/xml,
// which gives the forward compatibility the gateway contract asks for.

type packageRequest struct {
	XMLName  xml.Name       `xml:"package"`
	Key      string         `xml:"key,attr,omitempty"`
	Login    string         `xml:"login,attr,omitempty"`
	Password string         `xml:"password,attr,omitempty"`
	Message  *messageAction `xml:"message,omitempty"`
	Status   *statusAction  `xml:"status,omitempty"`
	Balance  *balanceAction `xml:"balance,omitempty"`
}

type messageAction struct {
	Msgs []msgRequest `xml:"msg"`
}

type msgRequest struct {
	ID        string `xml:"id,attr"`
	Recipient string `xml:"recipient,attr"`
	Sender    string `xml:"sender,attr"`
	Type      int    `xml:"type,attr"`
	DateBeg   string `xml:"date_beg,attr,omitempty"`
	Text      string `xml:",chardata"`
}

type statusAction struct {
	Msgs []msgStatusQuery `xml:"msg"`
}

type msgStatusQuery struct {
	SMSID string `xml:"sms_id,attr"`
}

type balanceAction struct{}

type packageResponse struct {
	XMLName xml.Name         `xml:"package"`
	Error   *errorEnvelope   `xml:"error"`
	Message *messageResponse `xml:"message"`
	Status  *statusResponse  `xml:"status"`
	Balance *balanceResponse `xml:"balance"`
}

type errorEnvelope struct {
	Code string `xml:"code,attr"`
	Text string `xml:",chardata"`
}

type messageResponse struct {
	Msgs []msgReceipt `xml:"msg"`
}

type msgReceipt struct {
	ID     string `xml:"id,attr"`
	SMSID  string `xml:"sms_id,attr"`
	Count  int    `xml:"sms_count,attr"`
	Status string `xml:"status,attr"`
	Text   string `xml:",chardata"`
}

type statusResponse struct {
	Msgs []msgStatus `xml:"msg"`
}

type msgStatus struct {
	SMSID  string `xml:"sms_id,attr"`
	Status string `xml:"status,attr"`
	Text   string `xml:",chardata"`
}

type balanceResponse struct {
	Amount   string `xml:"amount"`
	Currency string `xml:"currency"`
}

func (a Auth) request() packageRequest {
	return packageRequest{
		Key:      strings.TrimSpace(a.APIKey),
		Login:    strings.TrimSpace(a.Login),
		Password: strings.TrimSpace(a.Password),
	}
}

func encodeRequest(req packageRequest) ([]byte, error) {
	body, err := xml.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// encodeSend builds the batch send document. Messages must already be
// normalized; ids carries the client-generated correlation id per message.
func encodeSend(auth Auth, msgs []Message, ids []string) ([]byte, error) {
	action := &messageAction{Msgs: make([]msgRequest, len(msgs))}
	for i, m := range msgs {
		entry := msgRequest{
			ID:        ids[i],
			Recipient: m.Phone,
			Sender:    m.Sender,
			Text:      m.Text,
		}
		if !m.SendAt.IsZero() {
			entry.DateBeg = m.SendAt.Format(sendAtLayout)
		}
		action.Msgs[i] = entry
	}

	req := auth.request()
	req.Message = action
	return encodeRequest(req)
}

func encodeStatus(auth Auth, smsIDs []string) ([]byte, error) {
	action := &statusAction{Msgs: make([]msgStatusQuery, len(smsIDs))}
	for i, id := range smsIDs {
		action.Msgs[i] = msgStatusQuery{SMSID: id}
	}

	req := auth.request()
	req.Status = action
	return encodeRequest(req)
}

func encodeBalance(auth Auth) ([]byte, error) {
	req := auth.request()
	req.Balance = &balanceAction{}
	return encodeRequest(req)
}

// decodeResponse parses the response document and checks the error envelope.
// Every decode path goes through here, so a gateway-level rejection surfaces
// as *ProviderError regardless of the action that triggered it.
func decodeResponse(data []byte) (*packageResponse, error) {
	var resp packageResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, malformedf("decode response: %v", err)
	}

	if resp.Error != nil {
		raw := strings.TrimSpace(resp.Error.Code)
		code, err := strconv.Atoi(raw)
		if err != nil {
			return nil, malformedf("non-numeric error code %q", raw)
		}
		return nil, &ProviderError{Code: code, Message: strings.TrimSpace(resp.Error.Text)}
	}

	return &resp, nil
}

// decodeSend matches response entries back to the request's correlation ids
// and returns one SendResult per id, in request order.
func decodeSend(data []byte, ids []string) ([]SendResult, error) {
	resp, err := decodeResponse(data)
	if err != nil {
		return nil, err
	}
	if resp.Message == nil {
		return nil, malformedf("response has no message block")
	}
	if got := len(resp.Message.Msgs); got != len(ids) {
		return nil, malformedf("expected %d message entries, got %d", len(ids), got)
	}

	byID := make(map[string]msgReceipt, len(resp.Message.Msgs))
	for _, entry := range resp.Message.Msgs {
		if entry.ID == "" {
			return nil, malformedf("message entry missing id")
		}
		if _, dup := byID[entry.ID]; dup {
			return nil, malformedf("duplicate message entry id %q", entry.ID)
		}
		byID[entry.ID] = entry
	}

	results := make([]SendResult, len(ids))
	for i, id := range ids {
		entry, ok := byID[id]
		if !ok {
			return nil, malformedf("response has no entry for message %q", id)
		}

		smsID := strings.TrimSpace(entry.SMSID)
		switch strings.ToLower(strings.TrimSpace(entry.Status)) {
		case "", "accepted":
			if smsID == "" {
				return nil, malformedf("accepted entry %q missing sms_id", id)
			}
			results[i] = SendResult{SMSID: smsID, Accepted: true, ProviderMessage: strings.TrimSpace(entry.Text)}
		default:
			results[i] = SendResult{SMSID: smsID, Accepted: false, ProviderMessage: strings.TrimSpace(entry.Text)}
		}
	}

	return results, nil
}

func decodeStatus(data []byte) (map[string]StatusResult, error) {
	resp, err := decodeResponse(data)
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, malformedf("response has no status block")
	}

	reports := make(map[string]StatusResult, len(resp.Status.Msgs))
	for _, entry := range resp.Status.Msgs {
		smsID := strings.TrimSpace(entry.SMSID)
		if smsID == "" {
			return nil, malformedf("status entry missing sms_id")
		}
		reports[smsID] = StatusResult{
			SMSID:  smsID,
			State:  parseDeliveryState(entry.Status),
			Detail: strings.TrimSpace(entry.Text),
		}
	}

	return reports, nil
}

func decodeBalance(data []byte) (BalanceResult, error) {
	resp, err := decodeResponse(data)
	if err != nil {
		return BalanceResult{}, err
	}
	if resp.Balance == nil {
		return BalanceResult{}, malformedf("response has no balance block")
	}

	raw := strings.TrimSpace(resp.Balance.Amount)
	if raw == "" {
		return BalanceResult{}, malformedf("balance amount missing")
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return BalanceResult{}, malformedf("balance amount %q: %v", raw, err)
	}

	return BalanceResult{Amount: amount, Currency: strings.TrimSpace(resp.Balance.Currency)}, nil
}
