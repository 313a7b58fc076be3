package polymarket

// auth.go: Polymarket CLOB authenticated client.
//
// Implements two-level authentication:
//   L1: EIP-712 signature with wallet private key → derive (or create) API credentials
//   L2: HMAC-SHA256 signing of every authenticated request

import (
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	gomodel "github.com/polymarket/go-order-utils/pkg/model"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

const (
	polygonChainID = int64(137)

	// CLOB EIP-712 auth domain
	clobDomainName    = "ClobAuthDomain"
	clobDomainVersion = "1"
	// Message signed for deriving API keys
	clobAuthMessage = "This message attests that I control the given wallet"

	// Taker address: zero address means a public order
	zeroAddress = "0x0000000000000000000000000000000000000000"
)

// APICredentials holds the CLOB L2 credentials.
type APICredentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

func (c APICredentials) complete() bool {
	return c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// AuthConfig describes the signing wallet.
type AuthConfig struct {
	PrivateKeyHex string         // Polygon private key without 0x prefix
	Funder        string         // proxy wallet holding funds; empty = signer address
	SignatureType int            // 0=EOA, 1=POLY_PROXY, 2=POLY_GNOSIS_SAFE
	Credentials   APICredentials // optional static L2 credentials
}

// AuthClient wraps the base Client with L1/L2 auth capabilities.
type AuthClient struct {
	*Client
	privateKey    *ecdsa.PrivateKey
	address       common.Address
	funder        common.Address
	signatureType int
	orderBuilder  builder.ExchangeOrderBuilder

	mu    sync.RWMutex
	creds *APICredentials
}

// NewAuthClient creates an authenticated trading client on top of base.
// Returns domain.ErrMissingCredentials if no private key is configured.
func NewAuthClient(base *Client, cfg AuthConfig) (*AuthClient, error) {
	if strings.TrimSpace(cfg.PrivateKeyHex) == "" {
		return nil, fmt.Errorf("auth.NewAuthClient: %w", domain.ErrMissingCredentials)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("auth.NewAuthClient: invalid private key: %w", err)
	}

	addr := crypto.PubkeyToAddress(key.PublicKey)
	funder := addr
	if cfg.Funder != "" {
		if !common.IsHexAddress(cfg.Funder) {
			return nil, fmt.Errorf("auth.NewAuthClient: invalid funder address %q", cfg.Funder)
		}
		funder = common.HexToAddress(cfg.Funder)
	}

	ac := &AuthClient{
		Client:        base,
		privateKey:    key,
		address:       addr,
		funder:        funder,
		signatureType: cfg.SignatureType,
		orderBuilder:  builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil),
	}
	if cfg.Credentials.complete() {
		creds := cfg.Credentials
		ac.creds = &creds
	}
	return ac, nil
}

// Address returns the signer address.
func (ac *AuthClient) Address() string {
	return ac.address.Hex()
}

// Funder returns the address that holds the funds (maker of orders).
func (ac *AuthClient) Funder() string {
	return ac.funder.Hex()
}

// Authenticate makes sure L2 credentials are available: static ones from
// config, or derived via L1 auth. Credentials are cached after the first success.
func (ac *AuthClient) Authenticate(ctx context.Context) error {
	ac.mu.RLock()
	have := ac.creds != nil
	ac.mu.RUnlock()
	if have {
		return nil
	}

	creds, err := ac.l1Credentials(ctx, http.MethodGet, "/auth/derive-api-key")
	if err != nil {
		// No key derived yet for this wallet: create one.
		slog.Debug("auth: derive-api-key failed, creating api key", "err", err)
		creds, err = ac.l1Credentials(ctx, http.MethodPost, "/auth/api-key")
		if err != nil {
			return fmt.Errorf("auth.Authenticate: %w", err)
		}
	}

	ac.mu.Lock()
	ac.creds = &creds
	ac.mu.Unlock()
	slog.Info("auth: api credentials ready", "address", ac.address.Hex())
	return nil
}

// l1Credentials calls an L1-authenticated endpoint that returns API credentials.
func (ac *AuthClient) l1Credentials(ctx context.Context, method, path string) (APICredentials, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := ac.signClobAuth(ts, "0")
	if err != nil {
		return APICredentials{}, fmt.Errorf("sign l1: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, ac.clobBase+path, nil)
	if err != nil {
		return APICredentials{}, fmt.Errorf("%s request: %w", path, err)
	}
	req.Header.Set("POLY_ADDRESS", ac.address.Hex())
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", ts)
	req.Header.Set("POLY_NONCE", "0")

	if err := ac.clobLimiter.Wait(ctx); err != nil {
		return APICredentials{}, fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := ac.http.Do(req)
	if err != nil {
		return APICredentials{}, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if resp.StatusCode != http.StatusOK {
		return APICredentials{}, fmt.Errorf("%s status %d: %s", path, resp.StatusCode, body)
	}

	var creds APICredentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return APICredentials{}, fmt.Errorf("%s: parse creds: %w", path, err)
	}
	if !creds.complete() {
		return APICredentials{}, errors.New(path + ": incomplete credentials in response")
	}
	return creds, nil
}

// EIP-712 type hashes (computed once).
var (
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId)",
	))
	clobAuthTypeHash = crypto.Keccak256Hash([]byte(
		"ClobAuth(address address,string timestamp,uint256 nonce,string message)",
	))
)

// clobAuthDomainSeparator computes the EIP-712 domain separator for ClobAuthDomain.
func clobAuthDomainSeparator() common.Hash {
	var buf []byte
	buf = append(buf, eip712DomainTypeHash.Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(clobDomainName)).Bytes()...)
	buf = append(buf, crypto.Keccak256Hash([]byte(clobDomainVersion)).Bytes()...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(polygonChainID).Bytes(), 32)...)
	return crypto.Keccak256Hash(buf)
}

// signClobAuth signs the ClobAuth EIP-712 typed data for L1 auth.
func (ac *AuthClient) signClobAuth(timestamp, nonce string) (string, error) {
	nonceInt, ok := new(big.Int).SetString(nonce, 10)
	if !ok {
		return "", fmt.Errorf("invalid nonce: %s", nonce)
	}

	var structBuf []byte
	structBuf = append(structBuf, clobAuthTypeHash.Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(ac.address.Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(timestamp)).Bytes()...)
	structBuf = append(structBuf, common.LeftPadBytes(nonceInt.Bytes(), 32)...)
	structBuf = append(structBuf, crypto.Keccak256Hash([]byte(clobAuthMessage)).Bytes()...)
	structHash := crypto.Keccak256Hash(structBuf)

	var rawBuf []byte
	rawBuf = append(rawBuf, 0x19, 0x01)
	rawBuf = append(rawBuf, clobAuthDomainSeparator().Bytes()...)
	rawBuf = append(rawBuf, structHash.Bytes()...)
	msgHash := crypto.Keccak256Hash(rawBuf)

	sig, err := crypto.Sign(msgHash.Bytes(), ac.privateKey)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return "0x" + fmt.Sprintf("%x", sig), nil
}

// l2Headers returns the authenticated headers for L2 API calls.
func (ac *AuthClient) l2Headers(method, path, body string, now time.Time) (map[string]string, error) {
	ac.mu.RLock()
	creds := ac.creds
	ac.mu.RUnlock()
	if creds == nil {
		return nil, fmt.Errorf("auth: credentials not derived yet")
	}

	ts := strconv.FormatInt(now.Unix(), 10)
	sig, err := hmacSignature(creds.Secret, ts+strings.ToUpper(method)+path+body)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"POLY_ADDRESS":    ac.address.Hex(),
		"POLY_SIGNATURE":  sig,
		"POLY_TIMESTAMP":  ts,
		"POLY_API_KEY":    creds.APIKey,
		"POLY_PASSPHRASE": creds.Passphrase,
	}, nil
}

// hmacSignature signs msg with the base64url-encoded API secret.
func hmacSignature(secret, msg string) (string, error) {
	secretBytes, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: decode secret: %w", err)
	}
	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(msg))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// apiKey returns the cached API key ("owner" of orders).
func (ac *AuthClient) apiKey() string {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if ac.creds == nil {
		return ""
	}
	return ac.creds.APIKey
}

// doL2 executes an authenticated L2 HTTP request with rate limiting.
// HMAC headers are regenerated on every attempt so the timestamp stays fresh.
// POST requests are not retried on transport errors: the order may have landed.
func (ac *AuthClient) doL2(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyStr string
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		bodyStr = string(b)
	}

	fullURL := ac.clobBase + path
	retryTransport := method != http.MethodPost

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ac.clobLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		headers, err := ac.l2Headers(method, path, bodyStr, time.Now())
		if err != nil {
			return err
		}

		var bodyReader io.Reader
		if bodyStr != "" {
			bodyReader = strings.NewReader(bodyStr)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := ac.http.Do(req)
		if err != nil {
			if !retryTransport || attempt == maxRetries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			ac.sleep(ctx, attempt)
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetries {
				return fmt.Errorf("rate limited after %d retries", maxRetries)
			}
			ac.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 500 {
			if attempt == maxRetries {
				return fmt.Errorf("server error %d: %s", resp.StatusCode, respBody)
			}
			ac.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 400 {
			return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// buildSignedOrder creates an EIP-712 signed BUY order.
// price is in USDC per share and size is in shares (e.g., 0.45 and 10.0).
// Uses integer arithmetic to avoid floating-point precision errors that the
// CLOB API rejects. The API verifies: makerAmount == price * takerAmount exactly.
func (ac *AuthClient) buildSignedOrder(tokenID string, price, size float64, negRisk bool) (*gomodel.SignedOrder, error) {
	makerAmount, takerAmount, err := orderAmounts(price, size)
	if err != nil {
		return nil, err
	}

	verifyingContract := gomodel.CTFExchange
	if negRisk {
		verifyingContract = gomodel.NegRiskCTFExchange
	}

	orderData := &gomodel.OrderData{
		Maker:         ac.funder.Hex(),
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   strconv.FormatInt(makerAmount, 10),
		TakerAmount:   strconv.FormatInt(takerAmount, 10),
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        ac.address.Hex(),
		Expiration:    "0",
		Side:          gomodel.BUY,
		SignatureType: gomodel.SignatureType(ac.signatureType),
	}

	signed, err := ac.orderBuilder.BuildSignedOrder(ac.privateKey, orderData, verifyingContract)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return signed, nil
}

// orderAmounts returns the maker (USDC) and taker (shares) amounts in
// micro-units for a BUY of size shares at price.
func orderAmounts(price, size float64) (maker, taker int64, err error) {
	pricePrecision := detectPricePrecision(price)
	priceInt := int64(math.Round(price * float64(pricePrecision)))
	sharesCents := int64(math.Round(size * 100))

	amountFactor := int64(1_000_000) / (100 * pricePrecision)
	maker = sharesCents * priceInt * amountFactor
	taker = sharesCents * 10000

	if maker <= 0 || taker <= 0 {
		return 0, 0, fmt.Errorf("invalid amounts: maker=%d taker=%d (price=%.4f size=%.4f)", maker, taker, price, size)
	}
	return maker, taker, nil
}

// detectPricePrecision returns the multiplier matching the market's tick size.
// e.g. price=0.60 → 100 (tick 0.01), price=0.673 → 1000 (tick 0.001).
func detectPricePrecision(price float64) int64 {
	for _, prec := range []int64{100, 1000, 10000} {
		rounded := math.Round(price * float64(prec))
		if math.Abs(rounded/float64(prec)-price) < 1e-10 {
			return prec
		}
	}
	return 100
}
