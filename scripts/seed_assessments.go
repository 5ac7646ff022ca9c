// seed_assessments.go: standalone script that submits sample assessments to
// a running Wellspring server, for demos and dashboards.
//
// Usage:
//
//	go run scripts/seed_assessments.go -api http://localhost:8700 -user demo -count 5
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

type question struct {
	Key           string   `json:"key"`
	AllowedValues []string `json:"allowed_values"`
	MultiSelect   bool     `json:"multi_select"`
	Required      bool     `json:"required"`
}

type questionsResponse struct {
	ID        string     `json:"id"`
	Questions []question `json:"questions"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "Wellspring API base URL")
	userID := flag.String("user", "demo-user", "X-User-ID header value")
	types := flag.String("types", "thyroid,menopause,dosha", "comma-separated assessment types")
	count := flag.Int("count", 3, "submissions per type")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	dryRun := flag.Bool("dry-run", false, "print submissions without posting")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	client := &http.Client{Timeout: 10 * time.Second}

	created := 0
	for _, typeID := range strings.Split(*types, ",") {
		typeID = strings.TrimSpace(typeID)
		qs, err := fetchQuestions(client, *apiURL, typeID)
		if err != nil {
			log.Fatalf("fetch questions for %s: %v", typeID, err)
		}

		for i := 0; i < *count; i++ {
			body, _ := json.Marshal(map[string]interface{}{"answers": randomAnswers(rng, qs)})
			if *dryRun {
				fmt.Printf("%s %s\n", typeID, body)
				continue
			}

			req, err := http.NewRequest("POST", *apiURL+"/api/v1/assessments/"+typeID, bytes.NewReader(body))
			if err != nil {
				log.Fatalf("build request: %v", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", *userID)

			resp, err := client.Do(req)
			if err != nil {
				log.Fatalf("submit %s: %v", typeID, err)
			}
			var rec struct {
				ID             string  `json:"id"`
				AggregateScore float64 `json:"aggregate_score"`
				RiskTier       string  `json:"risk_tier"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&rec)
			resp.Body.Close()

			if resp.StatusCode == http.StatusCreated {
				created++
				log.Printf("created %s %s score=%g tier=%s", typeID, rec.ID, rec.AggregateScore, rec.RiskTier)
			} else {
				log.Printf("submit %s: unexpected status %d", typeID, resp.StatusCode)
			}
		}
	}

	if !*dryRun {
		log.Printf("done: %d assessments created for %s", created, *userID)
	}
}

func fetchQuestions(client *http.Client, apiURL, typeID string) (*questionsResponse, error) {
	resp, err := client.Get(apiURL + "/api/v1/assessments/" + typeID + "/questions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var qs questionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&qs); err != nil {
		return nil, err
	}
	return &qs, nil
}

func randomAnswers(rng *rand.Rand, qs *questionsResponse) map[string]interface{} {
	answers := make(map[string]interface{}, len(qs.Questions))
	for _, q := range qs.Questions {
		if len(q.AllowedValues) == 0 || (!q.Required && rng.Intn(2) == 0) {
			continue
		}
		if q.MultiSelect {
			var picked []string
			for _, v := range q.AllowedValues {
				if rng.Intn(3) == 0 {
					picked = append(picked, v)
				}
			}
			if picked == nil {
				picked = []string{}
			}
			answers[q.Key] = picked
			continue
		}
		answers[q.Key] = q.AllowedValues[rng.Intn(len(q.AllowedValues))]
	}
	return answers
}
