// Package models provides functionality for listing available OpenAI
// models. It helps users discover which chat models can serve as a
// translation backend with their API key.
package models
