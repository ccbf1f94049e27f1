// Command sign signs Ed25519 login challenges for the board operator.
package main

import (
	"bufio"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/debemdeboas/feedback-board/internal/routes"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func loadPrivateKey(filename string) (ed25519.PrivateKey, error) {
	privKeyBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return parsePrivateKey(privKeyBytes)
}

func parsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edPriv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("not an Ed25519 private key")
	}
	return edPriv, nil
}

// signChallenge signs a base64 challenge and returns the base64 signature.
func signChallenge(key ed25519.PrivateKey, challengeB64 string) (string, error) {
	challenge, err := base64.StdEncoding.DecodeString(strings.TrimSpace(challengeB64))
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge)), nil
}

// fetchChallenge reads the current challenge from a running board.
func fetchChallenge(client *http.Client, server string) (string, error) {
	resp, err := client.Get(strings.TrimRight(server, "/") + routes.AuthChallenge)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Challenge string `json:"challenge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("invalid challenge response: %w", err)
	}
	return payload.Challenge, nil
}

func main() {
	keyPath := flag.String("key", "privkey.pem", "path to the PKCS#8 Ed25519 private key")
	server := flag.String("server", "", "board URL to fetch the challenge from; reads challenges from stdin when empty")
	flag.Parse()

	privKey, err := loadPrivateKey(*keyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error loading private key: "+err.Error()))
		os.Exit(1)
	}

	if *server != "" {
		challenge, err := fetchChallenge(&http.Client{Timeout: 10 * time.Second}, *server)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error fetching challenge: "+err.Error()))
			os.Exit(1)
		}
		sig, err := signChallenge(privKey, challenge)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
			os.Exit(1)
		}
		fmt.Println(outputStyle.Render("Signature: " + sig))
		return
	}

	fmt.Println("Enter challenges one by one. Type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("Enter challenge (base64): "))

		if !scanner.Scan() {
			break
		}

		challengeB64 := strings.TrimSpace(scanner.Text())
		if challengeB64 == "" {
			continue
		}
		if challengeB64 == "quit" {
			break
		}

		sig, err := signChallenge(privKey, challengeB64)
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			continue
		}
		fmt.Println(outputStyle.Render("Signature: " + sig))
	}

	if err := scanner.Err(); err != nil {
		fmt.Println("Error reading input:", err)
	}
}
