package domain

import "errors"

var ErrInvalidRole = errors.New("invalid role")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrSessionNotFound = errors.New("session not found")
var ErrNoCredentials = errors.New("no persisted credentials")
var ErrNotApproved = errors.New("seller account is pending review")
var ErrUpstream = errors.New("upstream request failed")
