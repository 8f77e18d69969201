package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"skalgpt-be/internal/config"
	"skalgpt-be/pkg/rag/session"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *client) do(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.http.Do(req)
}

func (c *client) call(method, path string, body, out interface{}) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: status %d, undecodable body: %w", method, path, resp.StatusCode, err)
	}
	if !env.Success {
		return fmt.Errorf("%s %s: %d %s", method, path, env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// signToken mints a short lived token for a throwaway user.
func signToken(secret string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func fail(format string, args ...interface{}) {
	color.Red(format, args...)
	os.Exit(1)
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000/api/chat/v1", "chat API base URL")
	message := flag.String("m", "Okulun kütüphanesi hangi saatlerde açık?", "message to send")
	flag.Parse()

	cfg := config.Load()
	token := os.Getenv("SMOKE_TOKEN")
	if token == "" {
		var err error
		if token, err = signToken(cfg.App.JwtSecret); err != nil {
			fail("cannot sign token: %v", err)
		}
	}

	c := &client{baseURL: *baseURL, token: token, http: &http.Client{}}

	// The UI shows the conversation before the server knows about it
	provisional := "local-" + uuid.NewString()
	state := session.State{
		Sessions:   []session.Summary{{ID: provisional, Title: "...", IsGeneratingTitle: true}},
		SelectedID: provisional,
		Messages:   []session.MessageRef{{ID: uuid.NewString(), SessionID: provisional, Role: "user", Content: *message}},
	}

	color.Cyan("1. Create session (client id %s)", provisional)
	var created struct {
		Id                string `json:"id"`
		Title             string `json:"title"`
		IsGeneratingTitle bool   `json:"is_generating_title"`
	}
	if err := c.call(http.MethodPost, "/session", map[string]string{
		"message":           *message,
		"client_session_id": provisional,
	}, &created); err != nil {
		fail("create session: %v", err)
	}
	color.Green("   server id %s, title %q, generating title: %v", created.Id, created.Title, created.IsGeneratingTitle)

	// Send with the provisional id on purpose; the server resolves the alias
	color.Cyan("2. Stream reply")
	resp, err := c.do(http.MethodPost, "/send", map[string]string{
		"session_id": provisional,
		"message":    *message,
	})
	if err != nil {
		fail("send: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		fail("send: status %d: %s", resp.StatusCode, body)
	}

	start := time.Now()
	var (
		reply      bytes.Buffer
		firstChunk time.Duration
		buf        = make([]byte, 512)
	)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if firstChunk == 0 {
				firstChunk = time.Since(start)
			}
			reply.Write(buf[:n])
			fmt.Print(string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			resp.Body.Close()
			fail("\nstream broken after %d bytes: %v", reply.Len(), err)
		}
	}
	resp.Body.Close()
	fmt.Println()
	color.Green("   %d bytes, first chunk after %s, total %s", reply.Len(), firstChunk, time.Since(start))

	state = session.Remap(state, provisional, created.Id)
	state.Messages = append(state.Messages, session.MessageRef{SessionID: created.Id, Role: "assistant", Content: reply.String()})

	color.Cyan("3. Compare with stored history")
	var stored []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.call(http.MethodGet, "/session/"+created.Id+"/messages", nil, &stored); err != nil {
		fail("history: %v", err)
	}
	if len(stored) != len(state.Messages) {
		fail("   expected %d stored messages, got %d", len(state.Messages), len(stored))
	}
	for i, m := range stored {
		if m.Role != state.Messages[i].Role || m.Content != state.Messages[i].Content {
			fail("   message %d differs (%s)", i, m.Role)
		}
	}
	color.Green("   history matches, selected session %s", state.SelectedID)

	color.Cyan("4. Clean up")
	if err := c.call(http.MethodDelete, "/session/"+created.Id, nil, nil); err != nil {
		fail("delete: %v", err)
	}
	color.Green("Smoke test passed")
}
