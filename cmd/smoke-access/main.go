// Command smoke-access exercises a running API end to end: it obtains a
// token, reads the permission catalog and resolves an org scope for the
// configured stakeholder.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	base := os.Getenv("SHIFTWAY_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	stakeholderID := os.Getenv("SHIFTWAY_SMOKE_STAKEHOLDER")
	if stakeholderID == "" {
		stakeholderID = "st-demo"
	}
	userID := os.Getenv("SHIFTWAY_SMOKE_USER")
	if userID == "" {
		userID = "user-demo"
	}

	client := &http.Client{Timeout: 5 * time.Second}

	var tokenResp struct {
		Token string `json:"token"`
	}
	postJSON(client, base+"/v1/auth/token", map[string]any{
		"user": userID,
	}, "", &tokenResp)
	if tokenResp.Token == "" {
		log.Fatal("token endpoint returned no token")
	}

	var catalog struct {
		Items []struct {
			Mnemocode string `json:"mnemocode"`
		} `json:"items"`
	}
	getJSON(client, base+"/v1/role-permissions", tokenResp.Token, &catalog)
	if len(catalog.Items) == 0 {
		log.Fatal("permission catalog is empty")
	}

	var scope struct {
		UnitIDs         []string `json:"unit_ids"`
		TradingPointIDs []string `json:"trading_point_ids"`
	}
	postJSON(client, base+"/v1/access/org-scope", map[string]any{
		"stakeholder_id":       stakeholderID,
		"permission_mnemocode": catalog.Items[0].Mnemocode,
	}, tokenResp.Token, &scope)

	fmt.Printf("✅ access smoke test passed: catalog=%d units=%d points=%d\n",
		len(catalog.Items), len(scope.UnitIDs), len(scope.TradingPointIDs))
}

func postJSON(client *http.Client, url string, body map[string]any, token string, dst any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal request for %s: %v", url, err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("build request for %s: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	do(client, req, dst)
}

func getJSON(client *http.Client, url, token string, dst any) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("build request for %s: %v", url, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	do(client, req, dst)
}

func do(client *http.Client, req *http.Request, dst any) {
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response from %s: %v", req.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("%s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Fatalf("decode response from %s: %v", req.URL, err)
	}
}
