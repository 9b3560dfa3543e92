// transcript-sink is a standalone demo endpoint for the gateway's agent
// forwarder. Point AGENT_ENDPOINT at it and it prints every final
// transcript the gateway delivers. Useful for verifying forwarding without
// a real downstream agent.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
)

type Transcript struct {
	SessionID  string   `json:"session_id"`
	Text       string   `json:"text"`
	Language   string   `json:"language"`
	Confidence *float64 `json:"confidence,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}

func main() {
	addr := os.Getenv("SINK_ADDR")
	if addr == "" {
		addr = ":9090"
	}

	http.HandleFunc("/transcripts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var t Transcript
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		if t.Confidence != nil {
			fmt.Printf("[%s] %s (%.2f)\n", t.SessionID, t.Text, *t.Confidence)
		} else {
			fmt.Printf("[%s] %s\n", t.SessionID, t.Text)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	log.Printf("transcript sink listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
