package api

import (
	"errors"
	"net/http"

	"github.com/tatianab/voidwalkers/internal/dice"
	"github.com/tatianab/voidwalkers/internal/llm"
	"github.com/tatianab/voidwalkers/internal/models"
	"github.com/tatianab/voidwalkers/internal/session"
	"github.com/tatianab/voidwalkers/internal/speech"
)

var statusTable = []struct {
	err    error
	status int
}{
	{dice.ErrMalformedExpression, http.StatusBadRequest},
	{session.ErrInvalidCharacter, http.StatusBadRequest},
	{session.ErrEmptyAction, http.StatusBadRequest},
	{models.ErrInvalidSlotName, http.StatusBadRequest},
	{session.ErrQuestNotFound, http.StatusNotFound},
	{session.ErrUnknownLocation, http.StatusNotFound},
	{models.ErrSnapshotNotFound, http.StatusNotFound},
	{session.ErrNoCharacter, http.StatusConflict},
	{session.ErrGameInProgress, http.StatusConflict},
	{session.ErrNotInCombat, http.StatusConflict},
	{session.ErrQuestNotActive, http.StatusConflict},
	{models.ErrCorruptSnapshot, http.StatusUnprocessableEntity},
	{llm.ErrGeneratorUnreachable, http.StatusBadGateway},
	{speech.ErrSynthesisFailed, http.StatusBadGateway},
	{speech.ErrSynthesisUnavailable, http.StatusServiceUnavailable},
}

// statusFor maps an operation error to an HTTP status and the sentinel it
// matched, if any.
func statusFor(err error) (int, error) {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status, e.err
		}
	}
	return http.StatusInternalServerError, nil
}
