package requests

import (
	"database/sql"

	"github.com/fastprodman/coinescrow/internal/repos/requests"
)

var _ requests.Requests = (*requestsRepo)(nil)

type requestsRepo struct{ db *sql.DB }

func New(db *sql.DB) *requestsRepo {
	return &requestsRepo{db: db}
}

const requestColumns = `id, requester_id, title, price, status`

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(s scanner) (requests.ServiceRequest, error) {
	var r requests.ServiceRequest

	err := s.Scan(&r.ID, &r.RequesterID, &r.Title, &r.Price, &r.Status)

	return r, err
}
