package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mintgate/mintd/presale"
)

// Server exposes the engine over HTTP JSON: the public mint and read
// endpoints, and bearer-token guarded owner operations.
type Server struct {
	engine     *presale.Engine
	adminToken string
}

func NewServer(engine *presale.Engine, adminToken string) *Server {
	return &Server{
		engine:     engine,
		adminToken: adminToken,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mint", s.handleMint)
	mux.HandleFunc("/campaigns", s.handleCampaigns)
	mux.HandleFunc("/campaigns/", s.handleCampaign)
	mux.HandleFunc("/nonces/", s.handleNonce)
	mux.HandleFunc("/records", s.handleRecords)
	mux.HandleFunc("/admin/campaigns", s.admin(s.handleCreateCampaign))
	mux.HandleFunc("/admin/campaigns/", s.admin(s.handleUpdateCampaign))
	mux.HandleFunc("/admin/pause", s.admin(s.handlePauseAll))
	mux.HandleFunc("/admin/authority", s.admin(s.handleAuthority))
	mux.HandleFunc("/admin/fees", s.admin(s.handleFees))
	mux.HandleFunc("/admin/withdraw", s.admin(s.handleWithdraw))
	return mux
}

func (s *Server) ListenAndServe(addr string) error {
	logger.Printf("api listening on %s\n", addr)
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) admin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if s.adminToken == "" || auth != "Bearer "+s.adminToken {
			renderError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		h(w, r)
	}
}

type mintRequestView struct {
	Campaign     uint64   `json:"campaign"`
	Payer        string   `json:"payer"`
	Denomination string   `json:"denomination"`
	Value        string   `json:"value"`
	Proof        []string `json:"proof"`
	Attestation  string   `json:"attestation"`
	Nonce        string   `json:"nonce"`
	Quantity     uint64   `json:"quantity"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		renderError(w, http.StatusMethodNotAllowed, errors.New(r.Method))
		return
	}
	var view mintRequestView
	err := json.NewDecoder(r.Body).Decode(&view)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	req, err := view.parse()
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := s.engine.BatchMint(r.Context(), req)
	if err != nil {
		renderEngineError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, recordView(rec))
}

func (view *mintRequestView) parse() (*presale.MintRequest, error) {
	payer, err := parseAddress(view.Payer)
	if err != nil {
		return nil, err
	}
	d, err := presale.DenominationFromString(view.Denomination)
	if err != nil {
		return nil, err
	}
	req := &presale.MintRequest{
		CampaignId:   view.Campaign,
		Payer:        payer,
		Denomination: d,
		Quantity:     view.Quantity,
	}
	if view.Value != "" {
		value, valid := new(big.Int).SetString(view.Value, 10)
		if !valid {
			return nil, fmt.Errorf("invalid value %s", view.Value)
		}
		req.Value = value
	}
	req.Proof, err = parseProof(view.Proof)
	if err != nil {
		return nil, err
	}
	req.Attestation, err = hexutil.Decode(view.Attestation)
	if err != nil {
		return nil, fmt.Errorf("invalid attestation: %v", err)
	}
	req.Nonce, err = parseHash(view.Nonce)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.engine.ListCampaigns()
	if err != nil {
		renderEngineError(w, err)
		return
	}
	views := make([]map[string]any, len(campaigns))
	for i, c := range campaigns {
		views[i] = campaignView(c)
	}
	renderJSON(w, http.StatusOK, views)
}

// handleCampaign serves /campaigns/{id}, /campaigns/{id}/price and
// /campaigns/{id}/eligible.
func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/campaigns/"), "/")
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	switch action {
	case "":
		campaign, err := s.engine.GetCampaign(id)
		if err != nil {
			renderEngineError(w, err)
			return
		}
		renderJSON(w, http.StatusOK, campaignView(campaign))
	case "price":
		d, err := presale.DenominationFromString(r.URL.Query().Get("denomination"))
		if err != nil {
			renderError(w, http.StatusBadRequest, err)
			return
		}
		price, err := s.engine.GetCurrentPrice(id, d)
		if err != nil {
			renderEngineError(w, err)
			return
		}
		renderJSON(w, http.StatusOK, map[string]any{
			"campaign":     id,
			"denomination": d.String(),
			"price":        price.String(),
		})
	case "eligible":
		addr, err := parseAddress(r.URL.Query().Get("address"))
		if err != nil {
			renderError(w, http.StatusBadRequest, err)
			return
		}
		var hexes []string
		if raw := r.URL.Query().Get("proof"); raw != "" {
			hexes = strings.Split(raw, ",")
		}
		proof, err := parseProof(hexes)
		if err != nil {
			renderError(w, http.StatusBadRequest, err)
			return
		}
		eligible, err := s.engine.IsEligible(id, addr, proof)
		if err != nil {
			renderEngineError(w, err)
			return
		}
		renderJSON(w, http.StatusOK, map[string]any{
			"campaign": id,
			"address":  addr.Hex(),
			"eligible": eligible,
		})
	default:
		renderError(w, http.StatusNotFound, errors.New(action))
	}
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	nonce, err := parseHash(strings.TrimPrefix(r.URL.Path, "/nonces/"))
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	used, err := s.engine.IsNonceUsed(nonce)
	if err != nil {
		renderEngineError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"used": used})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			renderError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %s", raw))
			return
		}
		limit = n
	}
	recs, err := s.engine.ListMintRecords(limit)
	if err != nil {
		renderEngineError(w, err)
		return
	}
	views := make([]map[string]any, len(recs))
	for i, rec := range recs {
		views[i] = recordView(rec)
	}
	renderJSON(w, http.StatusOK, views)
}

type campaignParamsView struct {
	StartsAt      time.Time                    `json:"starts_at"`
	EndsAt        time.Time                    `json:"ends_at"`
	MaxSupply     uint64                       `json:"max_supply"`
	MaxPerAddress uint64                       `json:"max_per_address"`
	Pricing       map[string]map[string]string `json:"pricing"`
	AllowListRoot string                       `json:"allow_list_root"`
}

func (view *campaignParamsView) parse() (*presale.CampaignParams, error) {
	params := &presale.CampaignParams{
		StartsAt:      view.StartsAt,
		EndsAt:        view.EndsAt,
		MaxSupply:     view.MaxSupply,
		MaxPerAddress: view.MaxPerAddress,
		Pricing:       make(map[presale.Denomination]*presale.Pricing),
	}
	for name, p := range view.Pricing {
		d, err := presale.DenominationFromString(name)
		if err != nil {
			return nil, err
		}
		base, valid := new(big.Int).SetString(p["base"], 10)
		if !valid {
			return nil, fmt.Errorf("invalid base %s", p["base"])
		}
		increment := new(big.Int)
		if p["increment"] != "" {
			increment, valid = new(big.Int).SetString(p["increment"], 10)
			if !valid {
				return nil, fmt.Errorf("invalid increment %s", p["increment"])
			}
		}
		params.Pricing[d] = &presale.Pricing{Base: base, Increment: increment}
	}
	if view.AllowListRoot != "" {
		root, err := parseHash(view.AllowListRoot)
		if err != nil {
			return nil, err
		}
		params.AllowListRoot = root
	}
	return params, nil
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		renderError(w, http.StatusMethodNotAllowed, errors.New(r.Method))
		return
	}
	var view campaignParamsView
	err := json.NewDecoder(r.Body).Decode(&view)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	params, err := view.parse()
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	campaign, err := s.engine.CreateCampaign(params)
	if err != nil {
		renderEngineError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, campaignView(campaign))
}

type campaignUpdateView struct {
	Pricing       map[string]map[string]string `json:"pricing"`
	StartsAt      *time.Time                   `json:"starts_at"`
	EndsAt        *time.Time                   `json:"ends_at"`
	MaxSupply     *uint64                      `json:"max_supply"`
	MaxPerAddress *uint64                      `json:"max_per_address"`
	AllowListRoot *string                      `json:"allow_list_root"`
	Active        *bool                        `json:"active"`
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		renderError(w, http.StatusMethodNotAllowed, errors.New(r.Method))
		return
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(r.URL.Path, "/admin/campaigns/"), 10, 64)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	var view campaignUpdateView
	err = json.NewDecoder(r.Body).Decode(&view)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}

	if view.Pricing != nil {
		params, err := (&campaignParamsView{Pricing: view.Pricing}).parse()
		if err != nil {
			renderError(w, http.StatusBadRequest, err)
			return
		}
		err = s.engine.UpdateCampaignPricing(id, params.Pricing)
		if err != nil {
			renderEngineError(w, err)
			return
		}
	}
	if view.StartsAt != nil && view.EndsAt != nil {
		err = s.engine.UpdateCampaignWindow(id, *view.StartsAt, *view.EndsAt)
		if err != nil {
			renderEngineError(w, err)
			return
		}
	}
	if view.MaxSupply != nil && view.MaxPerAddress != nil {
		err = s.engine.UpdateCampaignCaps(id, *view.MaxSupply, *view.MaxPerAddress)
		if err != nil {
			renderEngineError(w, err)
			return
		}
	}
	if view.AllowListRoot != nil {
		root, err := parseHash(*view.AllowListRoot)
		if err != nil {
			renderError(w, http.StatusBadRequest, err)
			return
		}
		err = s.engine.SetAllowListRoot(id, root)
		if err != nil {
			renderEngineError(w, err)
			return
		}
	}
	if view.Active != nil {
		err = s.engine.SetCampaignActive(id, *view.Active)
		if err != nil {
			renderEngineError(w, err)
			return
		}
	}
	campaign, err := s.engine.GetCampaign(id)
	if err != nil {
		renderEngineError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, campaignView(campaign))
}

func (s *Server) handlePauseAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		renderError(w, http.StatusMethodNotAllowed, errors.New(r.Method))
		return
	}
	err := s.engine.PauseAll()
	if err != nil {
		renderEngineError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"paused": true})
}

func (s *Server) handleAuthority(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		renderError(w, http.StatusMethodNotAllowed, errors.New(r.Method))
		return
	}
	var body struct {
		Address string `json:"address"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := parseAddress(body.Address)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	s.engine.RotateAuthority(addr)
	renderJSON(w, http.StatusOK, map[string]any{"authority": addr.Hex()})
}

func (s *Server) handleFees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		renderError(w, http.StatusMethodNotAllowed, errors.New(r.Method))
		return
	}
	var body []struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Share   uint   `json:"share"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	fees := make([]*presale.FeeRecipient, len(body))
	for i, f := range body {
		addr, err := parseAddress(f.Address)
		if err != nil {
			renderError(w, http.StatusBadRequest, err)
			return
		}
		fees[i] = &presale.FeeRecipient{
			Name:    f.Name,
			Address: addr,
			Share:   f.Share,
		}
	}
	err = s.engine.SetFeeRecipients(fees)
	if err != nil {
		renderEngineError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"recipients": len(fees)})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		renderError(w, http.StatusMethodNotAllowed, errors.New(r.Method))
		return
	}
	var body struct {
		Recipient    string `json:"recipient"`
		Denomination string `json:"denomination"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	recipient, err := parseAddress(body.Recipient)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	d, err := presale.DenominationFromString(body.Denomination)
	if err != nil {
		renderError(w, http.StatusBadRequest, err)
		return
	}
	claim, err := s.engine.WithdrawFees(recipient, d)
	if err != nil {
		renderEngineError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"recipient": recipient.Hex(),
		"amount":    claim.String(),
	})
}

func campaignView(c *presale.Campaign) map[string]any {
	pricing := make(map[string]map[string]string, len(c.Pricing))
	for d, p := range c.Pricing {
		pricing[d.String()] = map[string]string{
			"base":      p.Base.String(),
			"increment": p.Increment.String(),
		}
	}
	return map[string]any{
		"id":              c.Id,
		"starts_at":       c.StartsAt,
		"ends_at":         c.EndsAt,
		"max_supply":      c.MaxSupply,
		"max_per_address": c.MaxPerAddress,
		"pricing":         pricing,
		"allow_list_root": hexutil.Encode(c.AllowListRoot[:]),
		"total_minted":    c.TotalMinted,
		"active":          c.Active,
		"restricted":      c.Restricted(),
	}
}

func recordView(rec *presale.MintRecord) map[string]any {
	return map[string]any{
		"id":           rec.Id,
		"campaign":     rec.Campaign,
		"caller":       rec.Caller.Hex(),
		"token_ids":    rec.TokenIds,
		"quantity":     rec.Quantity,
		"price":        rec.Price.String(),
		"denomination": rec.Denomination.String(),
		"created_at":   rec.CreatedAt,
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %s", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) ([32]byte, error) {
	var h [32]byte
	raw, err := hexutil.Decode(s)
	if err != nil || len(raw) != 32 {
		return h, fmt.Errorf("invalid 32-byte hex %s", s)
	}
	copy(h[:], raw)
	return h, nil
}

func parseProof(hexes []string) ([][32]byte, error) {
	var proof [][32]byte
	for _, s := range hexes {
		h, err := parseHash(s)
		if err != nil {
			return nil, err
		}
		proof = append(proof, h)
	}
	return proof, nil
}

func renderEngineError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch presale.ErrorKind(err) {
	case "UnknownCampaign":
		status = http.StatusNotFound
	case "NonceAlreadyUsed":
		status = http.StatusConflict
	case "UntrustedSigner", "NotEligible":
		status = http.StatusForbidden
	case "InsufficientPayment":
		status = http.StatusPaymentRequired
	case "Internal":
		status = http.StatusInternalServerError
	}
	renderError(w, status, err)
}

func renderError(w http.ResponseWriter, status int, err error) {
	body := map[string]any{
		"error":   presale.ErrorKind(err),
		"message": err.Error(),
	}
	if errors.Is(err, presale.ErrNonceAlreadyUsed) {
		// burned nonces are never reusable, a retry needs a fresh
		// nonce and attestation pair from the authority
		body["retry"] = "request a new nonce and attestation"
	}
	renderJSON(w, status, body)
}

func renderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		logger.Verbosef("renderJSON() => %v\n", err)
	}
}

// Serve runs the server until the context is cancelled.
func Serve(ctx context.Context, engine *presale.Engine, adminToken, addr string) error {
	s := NewServer(engine, adminToken)
	errc := make(chan error, 1)
	go func() {
		errc <- s.ListenAndServe(addr)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
