// seed_dataset.go uploads a JSON array of raw records to an Evergreen dataset
// and optionally starts a run.
//
// Usage:
//
//	go run scripts/seed_dataset.go -file records.json -dataset textiles -api http://localhost:8700 -run
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	filePath := flag.String("file", "records.json", "path to a JSON array of records")
	datasetID := flag.String("dataset", "default", "dataset id")
	apiURL := flag.String("api", "http://localhost:8700", "Evergreen API base URL")
	token := flag.String("token", os.Getenv("EVERGREEN_ADMIN_TOKEN"), "admin bearer token")
	seed := flag.Int64("seed", 42, "seed for the triggered run")
	run := flag.Bool("run", false, "start a run after uploading")
	dryRun := flag.Bool("dry-run", false, "print the record count without posting")
	flag.Parse()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read %s: %v", *filePath, err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		log.Fatalf("parse %s: %v", *filePath, err)
	}
	log.Printf("parsed %d records from %s", len(records), *filePath)

	if *dryRun {
		return
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	url := fmt.Sprintf("%s/api/v1/datasets/%s", *apiURL, *datasetID)

	if err := post(client, url+"/records", *token, map[string]interface{}{"records": records}); err != nil {
		log.Fatalf("upload: %v", err)
	}
	log.Printf("uploaded %d records to %s", len(records), *datasetID)

	if *run {
		if err := post(client, url+"/runs", *token, map[string]interface{}{"seed": *seed}); err != nil {
			log.Fatalf("run: %v", err)
		}
		log.Printf("run completed for %s", *datasetID)
	}
}

func post(client *http.Client, url, token string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return nil
}
