package main

// pasteload generates user traffic against a pastebin-style HTTP API for
// performance testing. It simulates a number of users, each of which loops
// over two actions:
//
// - create_paste posts a new paste. The content is a fixed prefix followed by
// 256 random alphanumeric characters; expires_in and syntax are picked at
// random from the active profile's label sets. When the API answers 201 with
// a JSON body carrying an id, the user remembers that id. A 201 whose body is
// not JSON is counted as a failure ("Response is not valid JSON").
//
// - read_paste fetches one of the pastes the same user created, chosen at
// random. A user that has created nothing yet skips the read entirely; no
// request is made and nothing is counted. Reads are reported under one name,
// /api/v1/paste/[id], whatever the id.
//
// Users pick read over create 5 to 1 by default and pause a random time
// between --waitmin and --waitmax after each action. The ids a user remembers
// belong to that user alone; users share nothing but the HTTP connection pool,
// the statistics and the span sender.
//
// - profile selects one of two configurations of the same scenario: "basic"
// (expires_in in 10m, 1h, 1d; no tracing) and "traced" (expires_in in 10m,
// 20m, 30m, 1h; one span per action sent over OTLP).
// - sender decides where the action spans go: dummy (nowhere), print (the
// log), otel (an OTLP collector over grpc or http) or honeycomb (the beeline).
// Spans are a side channel only; they never change what a user does.
//
// - users is the number of simulated users; they are started evenly over
// ramptime and retired evenly over ramptime at the end.
// - runtime is how long to keep all users running (0 means no limit).
// - actioncount is the total number of actions across all users (0 means no
// limit). With neither set, the run lasts until interrupted.

// Functionally, every user is a goroutine that owns its session. A single
// counter goroutine hands out action numbers, so the action count is global;
// when it runs out, or the run time is over, the run is cancelled, the users
// stop, and a report of all requests and failures is printed.

// The cmd directory holds two helpers for local runs: pastesink, a stand-in
// paste API, and grpcsink, an OTLP receiver that counts spans by name.
