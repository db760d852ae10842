// Package provider contains the translation backends and the client for the
// translation endpoint.
//
// Backends (DeepL, OpenAI) implement AIProvider and sit behind the
// endpoint. RemoteClient implements mirrorlai.BatchTranslator and is what a
// pipeline uses to reach the endpoint.
package provider

import "github.com/ZaguanLabs/mirrorlai"

// AIProvider is the interface for translation backends.
// This is an alias to the main package interface for convenience.
type AIProvider = mirrorlai.AIProvider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = mirrorlai.TranslateRequest
