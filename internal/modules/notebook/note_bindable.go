package notebook

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/modules/notebook/storage"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/platform/pagination"
)

const (
	maxTitleLength = 200
	maxBodyLength  = 20000
)

var filterSchema = storage.FilterSchema()

// NoteBindable exposes notebook notes through the generic actions.
//
// List accepts page, per_page, q, status, sort, direction and an AIP-160
// filter over title, status, pinned, created_at and updated_at. Deleting a
// pinned note is a conflict. Execute supports the "pin", "unpin" and
// "archive" operations.
type NoteBindable struct {
	store storage.NoteStore
}

// Target returns the bindable name.
func (b *NoteBindable) Target() string { return "note" }

// Handle runs one action against the note store.
func (b *NoteBindable) Handle(ctx context.Context, actx bindable.ActionContext) bindable.Result {
	switch actx.Action {
	case bindable.ActionList:
		return b.list(ctx, actx.Payload)
	case bindable.ActionRead:
		return b.read(ctx, actx.ID)
	case bindable.ActionCreate:
		return b.create(ctx, actx.Payload)
	case bindable.ActionUpdate:
		return b.update(ctx, actx.ID, actx.Payload.Attrs())
	case bindable.ActionDelete:
		return b.delete(ctx, actx.ID)
	case bindable.ActionExecute:
		return b.execute(ctx, actx.ID, actx.Payload.String("operation"))
	default:
		return bindable.Unsupported(actx.Action)
	}
}

func (b *NoteBindable) list(ctx context.Context, payload bindable.Payload) bindable.Result {
	query, err := pagination.ParseListQuery(payload, storage.ListConfig)
	if err != nil {
		return bindable.Invalid(err.Error())
	}
	if query.Status != "" && !validStatus(query.Status) {
		return bindable.Invalid("status must be active or archived")
	}
	cond, err := filterSchema.Parse(query.Filter)
	if err != nil {
		return bindable.Invalid("invalid filter: " + err.Error())
	}
	notes, err := b.store.ListNotes(ctx, storage.ListQuery{ListQuery: query, Condition: cond})
	if err != nil {
		return storeFailure(err)
	}
	records := make([]map[string]any, 0, len(notes))
	for _, note := range notes {
		records = append(records, noteRecord(note))
	}
	return bindable.Success(map[string]any{"records": records})
}

func (b *NoteBindable) read(ctx context.Context, id string) bindable.Result {
	note, result, ok := b.find(ctx, id)
	if !ok {
		return result
	}
	return bindable.Success(noteRecord(note))
}

func (b *NoteBindable) create(ctx context.Context, payload bindable.Payload) bindable.Result {
	note := storage.Note{Status: storage.StatusActive}
	if problem := applyAttrs(&note, payload, true); problem != "" {
		return bindable.Invalid(problem)
	}
	created, err := b.store.CreateNote(ctx, note)
	if err != nil {
		return storeFailure(err)
	}
	return bindable.Success(noteRecord(created))
}

func (b *NoteBindable) update(ctx context.Context, id string, attrs map[string]any) bindable.Result {
	note, result, ok := b.find(ctx, id)
	if !ok {
		return result
	}
	if problem := applyAttrs(&note, attrs, false); problem != "" {
		return bindable.Invalid(problem)
	}
	updated, err := b.store.UpdateNote(ctx, note)
	if err != nil {
		return storeFailure(err)
	}
	return bindable.Success(noteRecord(updated))
}

func (b *NoteBindable) delete(ctx context.Context, id string) bindable.Result {
	noteID, ok := parseID(id)
	if !ok {
		if id == "" {
			return bindable.Invalid("id is required")
		}
		return bindable.NotFound("note not found")
	}
	if err := b.store.DeleteNote(ctx, noteID); err != nil {
		return storeFailure(err)
	}
	return bindable.Success(map[string]any{"id": noteID, "deleted": true})
}

func (b *NoteBindable) execute(ctx context.Context, id, operation string) bindable.Result {
	note, result, ok := b.find(ctx, id)
	if !ok {
		return result
	}
	switch operation {
	case "pin":
		note.Pinned = true
	case "unpin":
		note.Pinned = false
	case "archive":
		note.Status = storage.StatusArchived
		note.Pinned = false
	case "":
		return bindable.Invalid("operation is required")
	default:
		return bindable.Invalid("unknown operation: " + operation)
	}
	updated, err := b.store.UpdateNote(ctx, note)
	if err != nil {
		return storeFailure(err)
	}
	return bindable.Success(noteRecord(updated))
}

func (b *NoteBindable) find(ctx context.Context, id string) (storage.Note, bindable.Result, bool) {
	if id == "" {
		return storage.Note{}, bindable.Invalid("id is required"), false
	}
	noteID, ok := parseID(id)
	if !ok {
		return storage.Note{}, bindable.NotFound("note not found"), false
	}
	note, err := b.store.GetNote(ctx, noteID)
	if err != nil {
		return storage.Note{}, storeFailure(err), false
	}
	return note, bindable.Result{}, true
}

func applyAttrs(note *storage.Note, attrs map[string]any, requireTitle bool) string {
	if raw, ok := attrs["title"]; ok || requireTitle {
		title, _ := raw.(string)
		title = strings.TrimSpace(title)
		switch {
		case title == "":
			return "title is required"
		case len(title) > maxTitleLength:
			return "title is too long"
		}
		note.Title = title
	}
	if raw, ok := attrs["body"]; ok {
		body, isString := raw.(string)
		if !isString {
			return "body must be text"
		}
		if len(body) > maxBodyLength {
			return "body is too long"
		}
		note.Body = body
	}
	if raw, ok := attrs["status"]; ok {
		status, _ := raw.(string)
		status = strings.TrimSpace(status)
		if !validStatus(status) {
			return "status must be active or archived"
		}
		note.Status = status
	}
	if raw, ok := attrs["pinned"]; ok {
		pinned, valid := parseBool(raw)
		if !valid {
			return "pinned must be true or false"
		}
		note.Pinned = pinned
	}
	return ""
}

func storeFailure(err error) bindable.Result {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return bindable.NotFound("note not found")
	case errors.Is(err, storage.ErrPinned):
		return bindable.Conflict("pinned notes cannot be deleted")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return bindable.FromError(apperrors.Wrap(apperrors.CodeUnavailable, "note store call cancelled", err))
	default:
		log.Printf("notebook: store error: %v", err)
		return bindable.Internal()
	}
}

func noteRecord(note storage.Note) map[string]any {
	return map[string]any{
		"id":         note.ID,
		"title":      note.Title,
		"body":       note.Body,
		"status":     note.Status,
		"pinned":     note.Pinned,
		"created_at": note.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": note.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func validStatus(status string) bool {
	return status == storage.StatusActive || status == storage.StatusArchived
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	case float64:
		return v != 0, v == 0 || v == 1
	default:
		return false, false
	}
}
