package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:8000"

// userToken must be a live Clerk session token; grab one from the frontend
// devtools before running.
var userToken = os.Getenv("TEST_CLERK_TOKEN")

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout, streaming tests run long
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Starting Chat API Smoke Test\n")

	if userToken == "" {
		color.Red("TEST_CLERK_TOKEN is not set")
		os.Exit(1)
	}

	// 1. Health Check
	color.Yellow("\n1. Health Check")
	resp, body, err := sendRequest("GET", "/", "", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	fmt.Println(string(body))

	// 2. Model Catalog (Public)
	color.Yellow("\n2. Get Model Catalog (Public Endpoint)")
	resp, body, err = sendRequest("GET", "/api/models", "", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var models []map[string]interface{}
	json.Unmarshal(body, &models)
	fmt.Printf("Got %d models\n", len(models))
	if len(models) > 0 {
		prettyPrint(models[0])
	}

	modelID := "meta-llama/llama-3.3-70b-instruct:free"
	if len(models) > 0 {
		if id, ok := models[0]["id"].(string); ok {
			modelID = id
		}
	}

	// 3. Create Session
	color.Yellow("\n3. Create Chat Session")
	resp, body, err = sendRequest("POST", "/api/sessions", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var session map[string]interface{}
	json.Unmarshal(body, &session)
	prettyPrint(session)

	sessionID, _ := session["id"].(string)
	if sessionID == "" {
		color.Red("No session id returned")
		os.Exit(1)
	}

	// 4. Send a Chat Turn (Non-Streaming)
	color.Yellow("\n4. Send Chat Turn")
	chatReq := map[string]interface{}{
		"message": "Say hello in exactly five words.",
		"model":   modelID,
	}
	resp, body, err = sendRequest("POST", "/api/sessions/"+sessionID+"/chat", userToken, chatReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var reply map[string]interface{}
	json.Unmarshal(body, &reply)
	prettyPrint(reply)

	// 5. Stream a Chat Turn
	color.Yellow("\n5. Stream Chat Turn")
	streamBody, _ := json.Marshal(map[string]interface{}{
		"message": "Count from one to five.",
		"model":   modelID,
	})
	req, _ := http.NewRequest("POST", baseURL+"/api/sessions/"+sessionID+"/chat/stream", bytes.NewBuffer(streamBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userToken)
	streamResp, err := http.DefaultClient.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", streamResp.Status)
	scanner := bufio.NewScanner(streamResp.Body)
	frames := 0
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		frames++
		fmt.Println(line)
	}
	streamResp.Body.Close()
	fmt.Printf("Received %d frames\n", frames)

	// 6. List Sessions
	color.Yellow("\n6. List Sessions")
	resp, body, err = sendRequest("GET", "/api/sessions", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var sessions []map[string]interface{}
	json.Unmarshal(body, &sessions)
	fmt.Printf("Got %d sessions\n", len(sessions))

	// 7. Rate Limits
	color.Yellow("\n7. Get Rate Limits")
	resp, body, err = sendRequest("GET", "/api/limits", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	fmt.Println(string(body))

	// 8. Usage Stats
	color.Yellow("\n8. Get Usage Stats")
	resp, body, err = sendRequest("GET", "/api/stats", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	fmt.Println(string(body))

	// 9. Export Session
	color.Yellow("\n9. Export Session (txt)")
	resp, body, err = sendRequest("GET", "/api/sessions/"+sessionID+"/export?format=txt", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	fmt.Println(string(body))

	// 10. Delete Session
	color.Yellow("\n10. Delete Session")
	resp, body, err = sendRequest("DELETE", "/api/sessions/"+sessionID, userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	fmt.Println(string(body))

	color.Cyan("\n✅ Smoke test finished")
}
