// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package api serves a loaded data card over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/OpenPSG/cpap/internal/card"
	"github.com/OpenPSG/cpap/session"
)

const shutdownTimeout = 5 * time.Second

// Server answers requests from the current card. The card is replaced by
// Reload and its sleep night boundary changed through the API; both are safe
// to use while requests are served.
type Server struct {
	version string

	mu   sync.RWMutex
	card *card.Card

	router *mux.Router
}

// New creates a server for c.
func New(c *card.Card, version string) *Server {
	s := &Server{card: c, version: version}

	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/version", s.getVersion).Methods(http.MethodGet)
	r.HandleFunc("/overview", s.getOverview).Methods(http.MethodGet)
	r.HandleFunc("/daily", s.getDaily).Methods(http.MethodGet)
	r.HandleFunc("/nights", s.getNights).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.getSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/boundary", s.getBoundary).Methods(http.MethodGet)
	r.HandleFunc("/boundary", s.setBoundary).Methods(http.MethodPut)
	r.HandleFunc("/refresh", s.refresh).Methods(http.MethodPost)
	s.router = r

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Card returns the card currently served.
func (s *Server) Card() *card.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.card
}

// Reload reads the card again from its path, keeping the current options.
// On error the previous card stays in place.
func (s *Server) Reload(ctx context.Context) error {
	s.mu.RLock()
	path, opts := s.card.Path, s.card.Options()
	s.mu.RUnlock()

	c, err := card.Load(ctx, path, opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	// Keep a boundary set while the card was loading.
	if b := s.card.Options().Boundary; b != c.Options().Boundary {
		if err := c.SetBoundary(b); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.card = c
	s.mu.Unlock()
	return nil
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.WithField("address", addr).Info("starting API server")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("stopping API server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		log.WithFields(log.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

// Version is the reply of /version.
type Version struct {
	Server string `json:"server"`
}

func (s *Server) getVersion(w http.ResponseWriter, req *http.Request) {
	if wantsJSON(req) {
		sendJSONReply(&Version{Server: s.version}, http.StatusOK, w)
		return
	}
	sendReply([]byte(fmt.Sprintf("cpap: %s\n", s.version)), http.StatusOK, w)
}

func (s *Server) getOverview(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sendJSONReply(s.card.Overview(), http.StatusOK, w)
}

func (s *Server) getDaily(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sendJSONReply(s.card.DailyStats(), http.StatusOK, w)
}

func (s *Server) getNights(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sendJSONReply(session.SortedNights(s.card.Nights), http.StatusOK, w)
}

func (s *Server) getSessions(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := s.card.Sessions
	if sessions == nil {
		sessions = []*session.Session{}
	}
	sendJSONReply(sessions, http.StatusOK, w)
}

func (s *Server) getSession(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	detail, err := s.card.SessionDetail(req.Context(), getArg(req, "id"), getBoolArg(req, "samples"))
	s.mu.RUnlock()

	var notFound *card.SessionNotFoundError
	if errors.As(err, &notFound) {
		handleError(err, http.StatusNotFound, w)
		return
	}
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}
	sendJSONReply(detail, http.StatusOK, w)
}

func (s *Server) getBoundary(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sendJSONReply(s.card.Options().Boundary, http.StatusOK, w)
}

func (s *Server) setBoundary(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.card.Options().Boundary
	var err error
	if b.StartHour, err = getIntArg(req, "start", b.StartHour); handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}
	if b.EndHour, err = getIntArg(req, "end", b.EndHour); handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}
	if handleError(s.card.SetBoundary(b), http.StatusUnprocessableEntity, w) {
		return
	}

	log.WithFields(log.Fields{"start": b.StartHour, "end": b.EndHour}).Info("sleep night boundary changed")
	sendJSONReply(b, http.StatusOK, w)
}

func (s *Server) refresh(w http.ResponseWriter, req *http.Request) {
	if handleError(s.Reload(req.Context()), http.StatusInternalServerError, w) {
		return
	}
	s.getOverview(w, req)
}
