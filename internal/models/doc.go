// Package models defines the data model for the application automation engine:
// job postings discovered from search, candidate profiles with their free-use
// counters, and the durable record of every application attempt.
package models
