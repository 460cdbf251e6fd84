package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shortsadmin/internal/api"
)

type principal struct {
	id    string
	email string
	role  string
}

type principalKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation mimics the framework's 422 body: a list of field errors.
func writeValidation(w http.ResponseWriter, location, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{
			"loc":  []string{location, field},
			"msg":  msg,
			"type": "value_error",
		}},
	})
}

func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
			writeDetail(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
			return []byte(Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "invalid token")
			return
		}
		who := principal{
			id:    claimString(claims, "sub", "user_id", "id"),
			email: claimString(claims, "email", "user_email"),
			role:  claimString(claims, "role", "user_role"),
		}
		if who.id == "" {
			writeDetail(w, http.StatusUnauthorized, "invalid token: missing subject")
			return
		}
		if who.role == "" {
			who.role = "user"
		}
		if who.role != "admin" && who.role != "user" {
			writeDetail(w, http.StatusUnauthorized, "invalid token: unknown role")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, who)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if who, _ := r.Context().Value(principalKey{}).(principal); who.role != "admin" {
			writeDetail(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}

func (b *Backend) health(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	now := b.clock
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, api.Health{Status: "ok", Time: api.NewTimestamp(now), App: "EasyShorts Admin", Env: "test"})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	who, _ := r.Context().Value(principalKey{}).(principal)
	writeJSON(w, http.StatusOK, map[string]string{"id": who.id, "email": who.email, "role": who.role})
}

func parseWindow(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, offset = 50, 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeValidation(w, "query", "limit", "Input should be between 1 and 200")
			return 0, 0, false
		}
		limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeValidation(w, "query", "offset", "Input should be greater than or equal to 0")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func window[T any](items []T, limit, offset int) api.Page[T] {
	total := len(items)
	start := min(offset, total)
	end := min(offset+limit, total)
	return api.Page[T]{Items: slices.Clone(items[start:end]), Total: total, Limit: limit, Offset: offset}
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parseWindow(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	active := r.URL.Query().Get("is_active")
	if active != "" && active != "0" && active != "1" {
		writeValidation(w, "query", "is_active", "Input should be a valid integer")
		return
	}

	b.mu.Lock()
	var matched []api.User
	for _, u := range b.users {
		if q != "" && !contains(u.Email, q) && !contains(u.Username, q) && !contains(u.UserID, q) {
			continue
		}
		if active != "" && strconv.Itoa(u.IsActive) != active {
			continue
		}
		matched = append(matched, u)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, window(matched, limit, offset))
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeValidation(w, "body", "payload", "Invalid JSON body")
		return false
	}
	return true
}

func (b *Backend) patchCredit(w http.ResponseWriter, r *http.Request) {
	var patch api.CreditPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.userIndexLocked(chi.URLParam(r, "userID"))
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "user not found")
		return
	}
	current := int64(0)
	if b.users[idx].Credit != nil {
		current = *b.users[idx].Credit
	}
	switch patch.Mode {
	case api.CreditModeSet:
		current = patch.Amount
	case api.CreditModeAdd:
		current += patch.Amount
	default:
		writeDetail(w, http.StatusBadRequest, "mode must be set|add")
		return
	}
	b.users[idx].Credit = &current
	b.accounts[b.users[idx].UserID].updatedAt = b.tick()
	writeJSON(w, http.StatusOK, b.users[idx])
}

func (b *Backend) patchActive(w http.ResponseWriter, r *http.Request) {
	var patch api.ActivePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if patch.IsActive != 0 && patch.IsActive != 1 {
		writeValidation(w, "body", "is_active", "Input should be 0 or 1")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.userIndexLocked(chi.URLParam(r, "userID"))
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "user not found")
		return
	}
	b.users[idx].IsActive = patch.IsActive
	writeJSON(w, http.StatusOK, b.users[idx])
}

func (b *Backend) patchPlan(w http.ResponseWriter, r *http.Request) {
	var patch api.PlanPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.userIndexLocked(chi.URLParam(r, "userID"))
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "user not found")
		return
	}
	plan := patch.Plan
	b.users[idx].Plan = &plan
	writeJSON(w, http.StatusOK, b.users[idx])
}

func (b *Backend) listEpisodes(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parseWindow(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	userID := r.URL.Query().Get("user_id")

	b.mu.Lock()
	var matched []api.Episode
	for _, ep := range b.episodes {
		owner := api.Deref(ep.UserID, "")
		if userID != "" && owner != userID {
			continue
		}
		if q != "" && !contains(api.Deref(ep.Title, ""), q) && !contains(ep.EpisodeID, q) && !contains(owner, q) {
			continue
		}
		matched = append(matched, ep)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, window(matched, limit, offset))
}

func (b *Backend) deleteEpisode(w http.ResponseWriter, r *http.Request) {
	deleteObjects := false
	if raw := r.URL.Query().Get("delete_objects"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidation(w, "query", "delete_objects", "Input should be a valid boolean")
			return
		}
		deleteObjects = parsed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "episodeID")
	idx := b.episodeIndexLocked(id)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "episode not found")
		return
	}

	result := api.EpisodeDeleteResult{EpisodeID: id, DeletedObjects: []string{}, FailedObjects: []api.ObjectFailure{}}
	if deleteObjects {
		for _, key := range b.episodeObjects[id] {
			if msg, failing := b.failObjects[key]; failing {
				result.FailedObjects = append(result.FailedObjects, api.ObjectFailure{Key: key, Error: msg})
				continue
			}
			result.DeletedObjects = append(result.DeletedObjects, key)
		}
	}
	b.episodes = slices.Delete(b.episodes, idx, idx+1)
	delete(b.episodeObjects, id)
	result.DeletedDB = true
	writeJSON(w, http.StatusOK, result)
}

func (b *Backend) listJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parseWindow(w, r)
	if !ok {
		return
	}
	var statuses []string
	for _, status := range strings.Split(r.URL.Query().Get("status"), ",") {
		if status = strings.TrimSpace(status); status != "" {
			statuses = append(statuses, status)
		}
	}
	jobType := r.URL.Query().Get("job_type")

	b.mu.Lock()
	var matched []api.Job
	for _, job := range b.jobs {
		if len(statuses) > 0 && !slices.Contains(statuses, job.Status) {
			continue
		}
		if jobType != "" && job.JobType != jobType {
			continue
		}
		matched = append(matched, job)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, window(matched, limit, offset))
}

func (b *Backend) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, job := range b.jobs {
		if job.JobID == id {
			writeJSON(w, http.StatusOK, job)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "job not found")
}

func (b *Backend) overview(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err != nil || n < 1 || n > 365 {
			writeValidation(w, "query", "days", "Input should be between 1 and 365")
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := api.Overview{
		UsersTotal:     int64(len(b.users)),
		EpisodesTotal:  int64(len(b.episodes)),
		JobsTotal:      int64(len(b.jobs)),
		JobsByStatus:   []api.StatusCount{},
		OrdersByStatus: []api.OrderStatusCount{{Status: "paid", Count: 2, AmountSum: 19.8}},
	}
	counts := map[string]int64{}
	var order []string
	for _, u := range b.users {
		if u.Active() {
			out.UsersActive++
		}
	}
	for _, job := range b.jobs {
		if _, seen := counts[job.Status]; !seen {
			order = append(order, job.Status)
		}
		counts[job.Status]++
	}
	slices.Sort(order)
	for _, status := range order {
		out.JobsByStatus = append(out.JobsByStatus, api.StatusCount{Status: status, Count: counts[status]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) assetKind(w http.ResponseWriter, r *http.Request) (api.AssetKind, bool) {
	kind, err := api.ParseAssetKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "unknown asset kind")
		return "", false
	}
	return kind, true
}

func (b *Backend) listAssets(w http.ResponseWriter, r *http.Request) {
	kind, ok := b.assetKind(w, r)
	if !ok {
		return
	}
	prefix := r.URL.Query().Get("prefix")
	b.mu.Lock()
	items := []api.AssetItem{}
	for _, asset := range b.assets[kind] {
		if strings.HasPrefix(asset.item.Key, prefix) {
			items = append(items, asset.item)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, items)
}

func (b *Backend) uploadAsset(w http.ResponseWriter, r *http.Request) {
	kind, ok := b.assetKind(w, r)
	if !ok {
		return
	}
	if !r.URL.Query().Has("key") {
		writeValidation(w, "query", "key", "Field required")
		return
	}
	key := strings.TrimLeft(strings.ReplaceAll(r.URL.Query().Get("key"), "..", ""), "/")
	if key == "" {
		writeDetail(w, http.StatusBadRequest, "key required")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeValidation(w, "body", "file", "Field required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("read upload: %v", err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	size := int64(len(content))
	item := api.AssetItem{
		Key:          key,
		Size:         &size,
		LastModified: api.NewTimestamp(b.tick()),
		URL:          ptr(fmt.Sprintf("/static/assets/%s/%s", kind, key)),
	}
	stored := b.assets[kind]
	if idx := slices.IndexFunc(stored, func(a storedAsset) bool { return a.item.Key == key }); idx >= 0 {
		stored[idx] = storedAsset{item: item, content: content}
	} else {
		b.assets[kind] = append(stored, storedAsset{item: item, content: content})
	}
	writeJSON(w, http.StatusOK, item)
}

func (b *Backend) summaryLocked(u api.User) api.CreditUserSummary {
	balance := int64(0)
	if u.Credit != nil {
		balance = *u.Credit
	}
	return api.CreditUserSummary{
		UserID:         u.UserID,
		Email:          u.Email,
		Username:       u.Username,
		CreditsBalance: balance,
		UpdatedAt:      api.NewTimestamp(b.accounts[u.UserID].updatedAt),
	}
}

func (b *Backend) detailLocked(u api.User) api.CreditUserDetail {
	ledger := b.accounts[u.UserID].ledger
	recent := slices.Clone(ledger[max(len(ledger)-50, 0):])
	slices.Reverse(recent)
	return api.CreditUserDetail{CreditUserSummary: b.summaryLocked(u), Ledger: recent}
}

func (b *Backend) listCreditUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	b.mu.Lock()
	items := []api.CreditUserSummary{}
	for _, u := range b.users {
		if q != "" && !contains(u.UserID, q) && !contains(u.Email, q) && !contains(u.Username, q) {
			continue
		}
		items = append(items, b.summaryLocked(u))
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, items)
}

func (b *Backend) getCreditUser(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.userIndexLocked(chi.URLParam(r, "userID"))
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, b.detailLocked(b.users[idx]))
}

func (b *Backend) adjustCredit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta  *int64  `json:"delta"`
		Reason *string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Delta == nil {
		writeValidation(w, "body", "delta", "Field required")
		return
	}
	if req.Reason == nil {
		writeValidation(w, "body", "reason", "Field required")
		return
	}
	if n := utf8.RuneCountInString(*req.Reason); n < 1 || n > 200 {
		writeValidation(w, "body", "reason", "String should have between 1 and 200 characters")
		return
	}
	who, _ := r.Context().Value(principalKey{}).(principal)

	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.userIndexLocked(chi.URLParam(r, "userID"))
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "user not found")
		return
	}
	u := &b.users[idx]
	balance := *req.Delta
	if u.Credit != nil {
		balance += *u.Credit
	}
	u.Credit = &balance

	now := b.tick()
	account := b.accounts[u.UserID]
	account.updatedAt = now
	actor := who.email
	if actor == "" {
		actor = who.id
	}
	account.ledger = append(account.ledger, api.CreditLedgerEntry{
		ID:        uuid.NewString(),
		UserID:    u.UserID,
		Delta:     *req.Delta,
		Reason:    *req.Reason,
		CreatedAt: api.NewTimestamp(now),
		Actor:     &actor,
	})
	writeJSON(w, http.StatusOK, api.CreditAdjustResponse{Status: "ok", User: b.detailLocked(*u)})
}

// SetBalance overwrites a user's balance without a ledger entry.
func (b *Backend) SetBalance(id string, balance int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.userIndexLocked(id)
	if idx < 0 {
		return errors.New("user not found")
	}
	b.users[idx].Credit = &balance
	return nil
}
