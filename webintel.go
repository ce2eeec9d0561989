// Package webintel crawls websites to a bounded link depth, stores the
// crawled content, and answers questions about it with a language model
// across single-shot or multi-turn sessions.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, ollama/, goquery/), while
// orchestration lives in crawl/ and chat/.
package webintel
