// Package main runs end-to-end conversations against a running quote
// assistant API.
//
// Usage:
//
//	API_BASE_URL=http://localhost:8080 ADMIN_JWT_SECRET=... go run ./scripts/e2e              # runs all
//	API_BASE_URL=http://localhost:8080 ADMIN_JWT_SECRET=... go run ./scripts/e2e family-quote # runs one
//
// TWILIO_WEBHOOK_SECRET enables the signed webhook scenario.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	apiBase       string
	adminToken    string
	webhookSecret string
	runID         = time.Now().UnixNano()
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...any) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

type reply struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	State     string `json:"state"`
	Category  string `json:"category"`
}

func sessionID(name string) string {
	return fmt.Sprintf("e2e-%s-%d", name, runID)
}

func send(session, text string) (reply, error) {
	body, _ := json.Marshal(map[string]string{"session_id": session, "message": text})
	resp, err := http.Post(apiBase+"/conversations/message", "application/json", bytes.NewReader(body))
	if err != nil {
		return reply{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return reply{}, fmt.Errorf("message returned %d: %s", resp.StatusCode, raw)
	}
	var r reply
	err = json.NewDecoder(resp.Body).Decode(&r)
	return r, err
}

func converse(t *T, session string, inputs ...string) []reply {
	out := make([]reply, 0, len(inputs))
	for _, in := range inputs {
		r, err := send(session, in)
		if err != nil {
			t.fatalf("send %q: %v", in, err)
			return out
		}
		fmt.Printf("    > %s\n      [%s] %s\n", in, r.State, firstLine(r.Reply))
		out = append(out, r)
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func adminGet(path string, dst any) (int, error) {
	req, _ := http.NewRequest(http.MethodGet, apiBase+path, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if dst != nil && resp.StatusCode == http.StatusOK {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(dst)
	}
	return resp.StatusCode, nil
}

func leadForSession(session string) (map[string]any, error) {
	var list struct {
		Leads []map[string]any `json:"leads"`
	}
	if _, err := adminGet("/admin/leads?limit=100", &list); err != nil {
		return nil, err
	}
	for _, l := range list.Leads {
		if l["session_id"] == session {
			return l, nil
		}
	}
	return nil, fmt.Errorf("no lead for session %s", session)
}

func generateJWT(secret string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "e2e",
		Audience:  jwt.ClaimStrings{"plena-admin"},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: sign admin token: %v\n", err)
		os.Exit(1)
	}
	return token
}

func scenarioFamilyQuote(t *T) {
	session := sessionID("family")
	replies := converse(t, session, "Hi", "Maria", "11999990000", "m@x.com", "2", "4", "35,32,5,3", "2", "2", "2", "1")
	if len(replies) == 0 {
		return
	}
	last := replies[len(replies)-1]
	t.check("quote category", last.Category == "quote")
	t.check("quote value R$ 852.15", strings.Contains(last.Reply, "R$ 852.15"))
	t.check("asks to route to a broker", last.State == "route_to_agent")

	done := converse(t, session, "yes")
	t.check("lead qualified", len(done) == 1 && done[0].Category == "lead_qualified")

	lead, err := leadForSession(session)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("lead stored with plan", lead["plan_name"] != "")
	t.check("lead stored with 4 lives", lead["lives"] == float64(4))
}

func scenarioBusinessQuote(t *T) {
	session := sessionID("business")
	replies := converse(t, session, "Hi", "João Silva", "11988887777", "j@acme.com", "3", "Acme Ltda", "yes",
		"3", "30,40,50", "1", "2", "1", "2")
	if len(replies) == 0 {
		return
	}
	last := replies[len(replies)-1]
	t.check("company on quote", strings.Contains(last.Reply, "Company: Acme Ltda"))
	t.check("business rate R$ 624.00", strings.Contains(last.Reply, "R$ 624.00"))
}

func scenarioFAQIntercept(t *T) {
	session := sessionID("faq")
	replies := converse(t, session, "Hi", "Ana", "what documents do I need?")
	if len(replies) < 3 {
		return
	}
	faq := replies[2]
	t.check("faq category", faq.Category == "faq")
	t.check("state unchanged", faq.State == replies[1].State)
	t.check("repeats current question", strings.Contains(faq.Reply, "phone number"))
}

func scenarioSignedWebhook(t *T) {
	if webhookSecret == "" {
		fmt.Println("    SKIP: TWILIO_WEBHOOK_SECRET not set")
		return
	}
	endpoint := apiBase + "/messaging/twilio/webhook"
	form := url.Values{
		"MessageSid": {fmt.Sprintf("SM%d", runID)},
		"From":       {fmt.Sprintf("+55119%08d", runID%100000000)},
		"To":         {"+5511900000000"},
		"Body":       {"Oi"},
	}
	req, _ := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sign(endpoint, form))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.fatalf("webhook: %v", err)
		return
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	t.check("webhook accepted", resp.StatusCode == http.StatusOK)
	t.check("twiml reply", strings.Contains(string(raw), "<Message>"))

	unsigned, err := http.Post(endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.fatalf("unsigned webhook: %v", err)
		return
	}
	unsigned.Body.Close()
	t.check("unsigned webhook rejected", unsigned.StatusCode == http.StatusUnauthorized)
}

func sign(endpoint string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteString(k + form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(webhookSecret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func scenarioAdminAuth(t *T) {
	req, _ := http.NewRequest(http.MethodGet, apiBase+"/admin/remarketing", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.fatalf("admin: %v", err)
		return
	}
	resp.Body.Close()
	t.check("admin without token rejected", resp.StatusCode == http.StatusUnauthorized)

	status, err := adminGet("/admin/remarketing", nil)
	t.check("admin with token accepted", err == nil && status == http.StatusOK)
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if apiBase == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL and ADMIN_JWT_SECRET required")
		os.Exit(1)
	}
	adminToken = generateJWT(secret)
	webhookSecret = os.Getenv("TWILIO_WEBHOOK_SECRET")

	scenarios := []scenario{
		{"family-quote", scenarioFamilyQuote},
		{"business-quote", scenarioBusinessQuote},
		{"faq-intercept", scenarioFAQIntercept},
		{"signed-webhook", scenarioSignedWebhook},
		{"admin-auth", scenarioAdminAuth},
	}

	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed, totalFailed := 0, 0
	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}
		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{}
		s.Fn(t)
		totalPassed += t.passed
		totalFailed += t.failed
	}

	fmt.Printf("\n%d passed, %d failed\n", totalPassed, totalFailed)
	if totalFailed > 0 {
		os.Exit(1)
	}
}
