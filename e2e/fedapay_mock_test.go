//go:build e2e
// +build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// fedaPayMock answers the two FedaPay endpoints the service calls. Created
// transactions stay pending until approve is called.
type fedaPayMock struct {
	mu           sync.Mutex
	nextID       int64
	transactions map[string]map[string]any
}

func newFedaPayMock() *fedaPayMock {
	return &fedaPayMock{nextID: 1000, transactions: map[string]map[string]any{}}
}

// fedaPay is started by TestMain and shared by every test.
var fedaPay *fedaPayMock

func (m *fedaPayMock) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		writeMockJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid API key"})
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/transactions":
		m.create(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/transactions/"):
		m.get(w, strings.TrimPrefix(r.URL.Path, "/v1/transactions/"))
	default:
		writeMockJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
	}
}

func (m *fedaPayMock) create(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMockJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}

	m.mu.Lock()
	m.nextID++
	id := strconv.FormatInt(m.nextID, 10)
	transaction := map[string]any{
		"id":          m.nextID,
		"reference":   body["reference"],
		"amount":      body["amount"],
		"status":      "pending",
		"mode":        nil,
		"metadata":    body["metadata"],
		"payment_url": "https://process.fedapay.com/pay/" + id,
	}
	m.transactions[id] = transaction
	m.mu.Unlock()

	writeMockJSON(w, http.StatusOK, map[string]any{"v1/transaction": transaction})
}

func (m *fedaPayMock) get(w http.ResponseWriter, id string) {
	m.mu.Lock()
	transaction, ok := m.transactions[id]
	m.mu.Unlock()
	if !ok {
		writeMockJSON(w, http.StatusNotFound, map[string]any{"message": "Transaction not found"})
		return
	}
	writeMockJSON(w, http.StatusOK, map[string]any{"v1/transaction": transaction})
}

func (m *fedaPayMock) approve(id, mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if transaction, ok := m.transactions[id]; ok {
		transaction["status"] = "approved"
		transaction["mode"] = mode
	}
}

func writeMockJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
