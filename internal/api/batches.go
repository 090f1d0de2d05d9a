package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/vaultlane/vault-creator/internal/errors"
	"github.com/vaultlane/vault-creator/internal/types"
)

type CreateBatchRequest struct {
	OwnerID       string                `json:"ownerId"`
	TermsAccepted bool                  `json:"termsAccepted"`
	Items         []types.VaultItemSpec `json:"items"`
}

type BatchStatusResponse struct {
	ID     uuid.UUID         `json:"id"`
	Status types.BatchStatus `json:"creationStatus"`
}

func (s *Server) CreateBatchHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	s.log.Info("Accepted a new batch request")

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Error("Unable to read request body", "error", err)
		return nil, err
	}
	defer r.Body.Close()

	var request CreateBatchRequest

	err = json.Unmarshal(bodyBytes, &request)
	if err != nil {
		return nil, fmt.Errorf("batch request unmarshalling error: %w", err)
	}

	batch, err := s.orchestrator.CreateBatch(r.Context(), request.OwnerID,
		request.TermsAccepted, request.Items)
	if err != nil {
		return nil, err
	}

	return batch, nil
}

func (s *Server) GetBatchHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	batchID, err := parseBatchID(r)
	if err != nil {
		return nil, err
	}

	return s.orchestrator.GetBatch(r.Context(), batchID)
}

func (s *Server) GetBatchStatusHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	batchID, err := parseBatchID(r)
	if err != nil {
		return nil, err
	}

	batch, err := s.orchestrator.GetBatch(r.Context(), batchID)
	if err != nil {
		return nil, err
	}

	return BatchStatusResponse{ID: batch.ID, Status: batch.Status}, nil
}

func parseBatchID(r *http.Request) (uuid.UUID, error) {
	batchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.New(errors.CodeBatchNotFound,
			"batch id is not a valid uuid", err)
	}

	return batchID, nil
}
