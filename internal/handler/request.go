package handler

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	errInvalidJSON  = errors.New("request body is not valid JSON")
	errMissingPlate = errors.New("missing license_nmbr or license_nmbrs")
)

type lookupRequest struct {
	LicenseNmbr  string          `json:"license_nmbr"`
	LicenseNmbrs []string        `json:"license_nmbrs"`
	Args         json.RawMessage `json:"args"`
}

// parseLookupRequest normalizes the caller conventions into a plain list of
// license numbers. The body may be a direct object, an object nested under
// "args", or an "args" value that is itself a JSON-encoded string (the
// Retell convention) and has to be decoded a second time. batch reports
// whether the caller used the list form, which controls response shaping.
func parseLookupRequest(body []byte) (licenseNmbrs []string, batch bool, err error) {
	var req lookupRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false, errInvalidJSON
	}

	if len(req.Args) > 0 {
		inner := req.Args
		var encoded string
		if err := json.Unmarshal(inner, &encoded); err == nil {
			inner = []byte(encoded)
		}
		req = lookupRequest{}
		if err := json.Unmarshal(inner, &req); err != nil {
			return nil, false, errInvalidJSON
		}
	}

	if req.LicenseNmbrs != nil {
		// Duplicates are kept; only empty entries are dropped.
		for _, nmbr := range req.LicenseNmbrs {
			if strings.TrimSpace(nmbr) != "" {
				licenseNmbrs = append(licenseNmbrs, nmbr)
			}
		}
		if len(licenseNmbrs) == 0 {
			return nil, true, errMissingPlate
		}
		return licenseNmbrs, true, nil
	}

	if strings.TrimSpace(req.LicenseNmbr) == "" {
		return nil, false, errMissingPlate
	}
	return []string{req.LicenseNmbr}, false, nil
}
