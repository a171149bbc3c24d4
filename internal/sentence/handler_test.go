package sentence

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dsemenov/sentence-board/internal/auth"
	"github.com/dsemenov/sentence-board/internal/models"
	"github.com/dsemenov/sentence-board/internal/store"
)

// memStore keeps sentences in memory. Filtering and sorting belong to the
// Mongo queries (covered in the store package); here List just records the
// query it was handed.
type memStore struct {
	items     map[primitive.ObjectID]*models.Sentence
	lastQuery models.ListQuery
}

func newMemStore() *memStore {
	return &memStore{items: map[primitive.ObjectID]*models.Sentence{}}
}

func (m *memStore) Insert(_ context.Context, sen *models.Sentence) (*models.Sentence, error) {
	sen.ID = primitive.NewObjectID()
	sen.CreatedAt = time.Now()
	cp := *sen
	m.items[sen.ID] = &cp
	return sen, nil
}

func (m *memStore) List(_ context.Context, q models.ListQuery) ([]models.Sentence, error) {
	m.lastQuery = q
	var out []models.Sentence
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*models.Sentence, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}
	s, ok := m.items[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, id primitive.ObjectID, text, category string) error {
	s, ok := m.items[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Text = text
	s.Category = category
	return nil
}

func (m *memStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) DistinctAuthors(_ context.Context) ([]string, error) {
	set := map[string]bool{}
	for _, s := range m.items {
		set[s.Name] = true
	}
	var names []string
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memStore) ListByAuthor(_ context.Context, name string) ([]models.Sentence, error) {
	var out []models.Sentence
	for _, s := range m.items {
		if s.Name == name {
			out = append(out, *s)
		}
	}
	return out, nil
}

var (
	alice = &models.Account{ID: "acc-alice", Username: "Alice"}
	bob   = &models.Account{ID: "acc-bob", Username: "Bob"}
)

// newTestRouter mounts the handlers the way main does. Tests inject the
// account into the request context directly, standing in for the auth
// middleware.
func newTestRouter(st *memStore) *chi.Mux {
	h := NewHandler(st, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/sentences", h.List)
	r.Get("/api/sentences/users", h.Users)
	r.Get("/api/sentences/users/{name}", h.UserSentences)
	r.Post("/api/sentences", h.Create)
	r.Put("/api/sentences/{id}", h.Update)
	r.Delete("/api/sentences/{id}", h.Delete)
	return r
}

func do(r http.Handler, method, path string, body interface{}, account *models.Account) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if account != nil {
		req = req.WithContext(auth.WithAccount(req.Context(), account))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func seed(st *memStore, account *models.Account, text, category string) *models.Sentence {
	sen := &models.Sentence{Text: text, AuthorID: account.ID, Name: account.Username, Category: category}
	saved, _ := st.Insert(context.Background(), sen)
	return saved
}

func TestCreate_TrimsAndBindsAuthor(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)

	rr := do(r, http.MethodPost, "/api/sentences", models.SentenceRequest{Text: "  hello  ", Category: "jokes"}, alice)
	require.Equal(t, http.StatusCreated, rr.Code)

	var got models.Sentence
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "hello", got.Text)
	require.Equal(t, "Alice", got.Name)
	require.Equal(t, alice.ID, got.AuthorID)
	require.Equal(t, "jokes", got.Category)

	// Round-trip: the stored value is the trimmed one.
	stored, err := st.GetByID(context.Background(), got.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "hello", stored.Text)
}

func TestCreate_Validation(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)

	rr := do(r, http.MethodPost, "/api/sentences", models.SentenceRequest{Text: "   "}, alice)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	long := make([]byte, models.MaxSentenceLen+1)
	for i := range long {
		long[i] = 'x'
	}
	rr = do(r, http.MethodPost, "/api/sentences", models.SentenceRequest{Text: string(long)}, alice)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, st.items)
}

func TestCreate_UnknownCategoryDefaultsToOther(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)

	rr := do(r, http.MethodPost, "/api/sentences", models.SentenceRequest{Text: "hi", Category: "poetry"}, alice)
	require.Equal(t, http.StatusCreated, rr.Code)

	var got models.Sentence
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "other", got.Category)
}

func TestCreate_Unauthenticated(t *testing.T) {
	r := newTestRouter(newMemStore())

	rr := do(r, http.MethodPost, "/api/sentences", models.SentenceRequest{Text: "hi"}, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdate_ExistenceBeforeOwnership(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)
	seed(st, alice, "hers", "other")

	// Bob asking for a nonexistent id sees 404, not 403.
	missing := primitive.NewObjectID().Hex()
	rr := do(r, http.MethodPut, "/api/sentences/"+missing, models.SentenceRequest{Text: "mine now"}, bob)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdate_Forbidden(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)
	sen := seed(st, alice, "hers", "other")

	rr := do(r, http.MethodPut, "/api/sentences/"+sen.ID.Hex(), models.SentenceRequest{Text: "mine now"}, bob)
	require.Equal(t, http.StatusForbidden, rr.Code)

	stored, err := st.GetByID(context.Background(), sen.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "hers", stored.Text)
}

func TestUpdate_Owner(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)
	sen := seed(st, alice, "before", "jokes")

	rr := do(r, http.MethodPut, "/api/sentences/"+sen.ID.Hex(), models.SentenceRequest{Text: " after "}, alice)
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := st.GetByID(context.Background(), sen.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "after", stored.Text)
	// Category was not supplied, so it is preserved.
	require.Equal(t, "jokes", stored.Category)
	require.Equal(t, alice.ID, stored.AuthorID)
}

func TestUpdate_EmptyText(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)
	sen := seed(st, alice, "before", "other")

	rr := do(r, http.MethodPut, "/api/sentences/"+sen.ID.Hex(), models.SentenceRequest{Text: "  "}, alice)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdate_InvalidID(t *testing.T) {
	r := newTestRouter(newMemStore())

	rr := do(r, http.MethodPut, "/api/sentences/not-a-hex-id", models.SentenceRequest{Text: "x"}, alice)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDelete_OwnershipScenario(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)
	sen := seed(st, alice, "to delete", "other")

	rr := do(r, http.MethodDelete, "/api/sentences/"+sen.ID.Hex(), nil, bob)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(r, http.MethodDelete, "/api/sentences/"+sen.ID.Hex(), nil, alice)
	require.Equal(t, http.StatusOK, rr.Code)

	// Gone for good.
	rr = do(r, http.MethodDelete, "/api/sentences/"+sen.ID.Hex(), nil, alice)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestList_PassesQueryThrough(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)

	rr := do(r, http.MethodGet, "/api/sentences?category=jokes&user=Alice&sortBy=oldest&search=foo", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, models.ListQuery{
		Category: "jokes",
		Author:   "Alice",
		Search:   "foo",
		SortBy:   "oldest",
	}, st.lastQuery)
}

func TestList_EmptyIsArray(t *testing.T) {
	r := newTestRouter(newMemStore())

	rr := do(r, http.MethodGet, "/api/sentences", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, "[]", rr.Body.String())
}

func TestUsers_DistinctSorted(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)
	seed(st, bob, "one", "other")
	seed(st, alice, "two", "other")
	seed(st, alice, "three", "other")

	rr := do(r, http.MethodGet, "/api/sentences/users", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `["Alice","Bob"]`, rr.Body.String())
}

func TestUserSentences(t *testing.T) {
	st := newMemStore()
	r := newTestRouter(st)
	seed(st, alice, "hers", "other")

	rr := do(r, http.MethodGet, "/api/sentences/users/Alice", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// Unknown author and author with no sentences are the same 404.
	rr = do(r, http.MethodGet, "/api/sentences/users/Nobody", nil, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
