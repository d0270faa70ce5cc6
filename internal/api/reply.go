// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// errorReply is the body of every non 2xx JSON response.
type errorReply struct {
	Error string `json:"error"`
}

func sendReply(body []byte, status int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

func sendJSONReply(obj interface{}, status int, w http.ResponseWriter) {
	body, err := json.Marshal(obj)
	if err != nil {
		log.Errorf("cannot encode reply: %v", err)
		http.Error(w, "cannot encode reply", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

// handleError sends err with status, if err is not nil. Returns whether an
// error was sent.
func handleError(err error, status int, w http.ResponseWriter) bool {
	if err == nil {
		return false
	}
	log.WithField("status", status).Debugf("request failed: %v", err)
	sendJSONReply(&errorReply{Error: err.Error()}, status, w)
	return true
}

// getArg returns a path variable, or else a query parameter.
func getArg(req *http.Request, arg string) string {
	if v, ok := mux.Vars(req)[arg]; ok {
		return v
	}
	return req.URL.Query().Get(arg)
}

func getIntArg(req *http.Request, arg string, def int) (int, error) {
	v := getArg(req, arg)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid value for %s: '%s'", arg, v)
	}
	return i, nil
}

func getBoolArg(req *http.Request, arg string) bool {
	b, _ := strconv.ParseBool(getArg(req, arg))
	return b
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}
