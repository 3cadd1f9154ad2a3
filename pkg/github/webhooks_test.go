/*
Copyright 2023 The Nanosoldier Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package github

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPayloadSignatureRoundTrip(t *testing.T) {
	key := []byte("abc")
	payload := []byte(`{"action": "created"}`)
	sig := PayloadSignature(payload, key)
	if !ValidatePayload(payload, sig, key) {
		t.Error("signature did not validate its own payload")
	}
	if ValidatePayload([]byte("tampered"), sig, key) {
		t.Error("signature validated a different payload")
	}
	if ValidatePayload(payload, sig, []byte("wrong")) {
		t.Error("signature validated under a different key")
	}
	if ValidatePayload(payload, "sha256=deadbeef", key) {
		t.Error("non-sha1 signature prefix accepted")
	}
	if ValidatePayload(payload, "sha1=zzzz", key) {
		t.Error("non-hex signature accepted")
	}
}

func TestValidateWebhook(t *testing.T) {
	key := []byte("abc")
	payload := []byte(`{"action": "created"}`)

	type request struct {
		method      string
		event       string
		guid        string
		sig         string
		contentType string
	}
	good := request{
		method:      http.MethodPost,
		event:       "issue_comment",
		guid:        "guid",
		sig:         PayloadSignature(payload, key),
		contentType: "application/json",
	}
	var testcases = []struct {
		name   string
		mod    func(r *request)
		valid  bool
		status int
	}{
		{
			name:  "valid request",
			mod:   func(r *request) {},
			valid: true,
		},
		{
			name:   "health check GET",
			mod:    func(r *request) { r.method = http.MethodGet },
			status: http.StatusOK,
		},
		{
			name:   "bad method",
			mod:    func(r *request) { r.method = http.MethodPut },
			status: http.StatusMethodNotAllowed,
		},
		{
			name:   "missing event type",
			mod:    func(r *request) { r.event = "" },
			status: http.StatusBadRequest,
		},
		{
			name:   "missing delivery guid",
			mod:    func(r *request) { r.guid = "" },
			status: http.StatusBadRequest,
		},
		{
			name:   "missing signature",
			mod:    func(r *request) { r.sig = "" },
			status: http.StatusForbidden,
		},
		{
			name:   "bad signature",
			mod:    func(r *request) { r.sig = "sha1=deadbeef" },
			status: http.StatusForbidden,
		},
		{
			name:   "wrong content type",
			mod:    func(r *request) { r.contentType = "application/x-www-form-urlencoded" },
			status: http.StatusBadRequest,
		},
	}
	for _, tc := range testcases {
		req := good
		tc.mod(&req)

		hr, err := http.NewRequest(req.method, "http://nanosoldier.example.com/", bytes.NewBuffer(payload))
		if err != nil {
			t.Fatal(err)
		}
		if req.event != "" {
			hr.Header.Set("X-GitHub-Event", req.event)
		}
		if req.guid != "" {
			hr.Header.Set("X-GitHub-Delivery", req.guid)
		}
		if req.sig != "" {
			hr.Header.Set("X-Hub-Signature", req.sig)
		}
		if req.contentType != "" {
			hr.Header.Set("content-type", req.contentType)
		}

		w := httptest.NewRecorder()
		event, guid, body, ok := ValidateWebhook(w, hr, key)
		if ok != tc.valid {
			t.Errorf("%s: valid = %v, want %v", tc.name, ok, tc.valid)
			continue
		}
		if !tc.valid {
			if w.Code != tc.status {
				t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.status)
			}
			continue
		}
		if event != "issue_comment" || guid != "guid" {
			t.Errorf("%s: event = %q, guid = %q", tc.name, event, guid)
		}
		if !bytes.Equal(body, payload) {
			t.Errorf("%s: payload was mangled: %q", tc.name, body)
		}
	}
}
