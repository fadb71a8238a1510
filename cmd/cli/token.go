package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adriano-Lengruber/flowtasks/internal/config"

	"github.com/spf13/cobra"
)

var (
	flagUserID   int
	flagRole     string
	flagTTLMin   int
	flagNoExpiry bool
)

// tokenCmd generates an HS256 JWT for testing/admin usage.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a JWT (HS256) for API authentication",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		secret := cfg.JWT.Secret
		if secret == "" {
			return fmt.Errorf("jwt.secret is empty; set it in config")
		}
		if flagUserID <= 0 {
			return fmt.Errorf("--user-id is required")
		}
		now := time.Now()
		payload := map[string]interface{}{
			"iat":     now.Unix(),
			"user_id": flagUserID,
			"sub":     fmt.Sprintf("%d", flagUserID),
		}
		if flagRole != "" {
			payload["role"] = flagRole
		}
		if !flagNoExpiry {
			ttl := time.Duration(flagTTLMin) * time.Minute
			if ttl <= 0 {
				ttl = cfg.JWT.ExpiresIn
			}
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			payload["exp"] = now.Add(ttl).Unix()
		}

		token, err := signHS256(payload, secret)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func signHS256(payload map[string]interface{}, secret string) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	signing := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func init() {
	tokenCmd.Flags().IntVar(&flagUserID, "user-id", 0, "user id claim")
	tokenCmd.Flags().StringVar(&flagRole, "role", "", "optional role claim")
	tokenCmd.Flags().IntVar(&flagTTLMin, "ttl", 0, "token lifetime in minutes (default: jwt.expires_in)")
	tokenCmd.Flags().BoolVar(&flagNoExpiry, "no-expiry", false, "issue a token without exp claim")
	rootCmd.AddCommand(tokenCmd)
}
