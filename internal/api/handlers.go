package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/models"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *contactservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *contactservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListContacts handles GET /api/contacts.
//
//	@Summary		List contacts in storage order
//	@Tags			contacts
//	@Produce		json
//	@Success		200	{object}	ContactListResponse
//	@Security		BearerAuth
//	@Router			/contacts [get]
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts := h.svc.List(r.Context())
	if contacts == nil {
		contacts = []models.Contact{}
	}
	writeJSON(w, http.StatusOK, ContactListResponse{
		Contacts: contacts,
		Size:     len(contacts),
		Capacity: h.svc.Capacity(),
		Empty:    len(contacts) == 0,
	})
}

// AddContact handles POST /api/contacts.
//
//	@Summary		Add a contact
//	@Tags			contacts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ContactRequest	true	"Contact to add"
//	@Success		201		{object}	Contact
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts [post]
func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	c, err := h.svc.Add(r.Context(), req.Name, req.PhoneNumber, req.Email)
	if err != nil {
		writeError(w, "add contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// AddContacts handles POST /api/contacts/batch.
//
//	@Summary		Add several contacts; all or nothing
//	@Tags			contacts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BatchRequest	true	"Contacts to add"
//	@Success		201		{object}	SizeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/batch [post]
func (h *Handler) AddContacts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	batch := make([]models.Contact, len(req.Contacts))
	for i, c := range req.Contacts {
		batch[i] = c.contact()
	}
	if err := h.svc.AddAll(r.Context(), batch); err != nil {
		writeError(w, "add contacts", err)
		return
	}
	writeJSON(w, http.StatusCreated, SizeResponse{
		Size:     h.svc.Size(r.Context()),
		Capacity: h.svc.Capacity(),
	})
}

// Search handles GET /api/contacts/search.
//
//	@Summary		Find the first contact by name (any case) or exact phone number
//	@Tags			contacts
//	@Produce		json
//	@Param			q	query		string	true	"Name or phone number"
//	@Success		200	{object}	Contact
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("q") {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	c, err := h.svc.Search(r.Context(), q.Get("q"))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// RemoveContact handles DELETE /api/contacts/{name}.
//
//	@Summary		Remove the first contact with the given name
//	@Tags			contacts
//	@Param			name	path	string	true	"Contact name (any case)"
//	@Success		204		"Contact removed"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/{name} [delete]
func (h *Handler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// chi matches on RawPath when the client sent escaped characters.
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}
	if _, err := h.svc.Remove(r.Context(), name); err != nil {
		writeError(w, "remove contact", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sort handles POST /api/contacts/sort.
//
//	@Summary		Sort contacts in place
//	@Tags			contacts
//	@Produce		json
//	@Param			by	query		string	false	"Sort key"	Enums(name, phone)
//	@Success		200	{object}	ContactListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contacts/sort [post]
func (h *Handler) Sort(w http.ResponseWriter, r *http.Request) {
	key := contactservice.SortKey(r.URL.Query().Get("by"))
	switch key {
	case "":
		key = contactservice.SortByName
	case contactservice.SortByName, contactservice.SortByNumber:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("sort key must be 'name' or 'phone'"))
		return
	}
	sorted := h.svc.Sort(r.Context(), key)
	if sorted == nil {
		sorted = []models.Contact{}
	}
	writeJSON(w, http.StatusOK, ContactListResponse{
		Contacts: sorted,
		Size:     len(sorted),
		Capacity: h.svc.Capacity(),
		Empty:    len(sorted) == 0,
	})
}

// Size handles GET /api/size.
//
//	@Summary		Report the number of contacts and the capacity
//	@Tags			contacts
//	@Produce		json
//	@Success		200	{object}	SizeResponse
//	@Security		BearerAuth
//	@Router			/size [get]
func (h *Handler) Size(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SizeResponse{
		Size:     h.svc.Size(r.Context()),
		Capacity: h.svc.Capacity(),
	})
}

// Clear handles DELETE /api/contacts.
//
//	@Summary		Remove every contact
//	@Tags			contacts
//	@Success		204	"Directory cleared"
//	@Security		BearerAuth
//	@Router			/contacts [delete]
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
