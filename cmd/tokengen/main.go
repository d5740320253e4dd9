// Package main mints bearer tokens for the credledger gateway. Tokens are
// signed with JWT_SIGNING_KEY, or the development default when it is unset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "credledger/internal/jwt_token"
	"credledger/internal/platform/config"
	"credledger/pkg/domain"
)

// must match cmd/server
const (
	tokenIssuer   = "credledger"
	tokenAudience = "credledger-api"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Caller    string            `json:"caller"`
	JTI       string            `json:"jti"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	cfg := config.FromEnv()

	address := flag.String("address", "", "Ledger account the token acts as (required)")
	ttl := flag.Duration("ttl", cfg.TokenTTL, "Token time-to-live")
	env := flag.String("env", "dev", "Environment annotation stored in the token")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Usage = printUsage
	flag.Parse()

	caller, err := domain.ParseAddress(*address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -address: %v\n\n", err)
		printUsage()
		os.Exit(1)
	}

	svc := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience, *ttl)
	svc.SetEnv(*env)
	token, jti, err := svc.GenerateCallerToken(context.Background(), caller)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Caller:    caller.String(),
			JTI:       jti,
			ExpiresIn: ttl.String(),
			Usage:     map[string]string{"header": "Authorization: Bearer <token>"},
		})
		return
	}

	fmt.Println("Caller Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Caller:     %s\n", caller)
	fmt.Printf("Expires In: %s\n", ttl.Round(time.Second))
	fmt.Printf("JTI:        %s\n", jti)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/v1/...")
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `tokengen - mint bearer tokens for the credledger gateway

WARNING: with JWT_SIGNING_KEY unset, tokens use the development key and only
         work against gateways running with the same default.

Usage:
  tokengen -address 0x<40 hex> [-ttl 15m] [-env dev] [-json]

Examples:
  # Act as the contract owner for 1h
  tokengen -address 0x00000000000000000000000000000000000000d0 -ttl 1h`)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
