// Package snclient provides the entry point for talking to one or more
// named content repositories.
//
// It layers repository registration, token resolution and handle caching
// on top of the request types defined in the content package. Most
// applications build a Client once, then ask it for a repository handle
// per call.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/sncontent/pkg/content"
//	  "github.com/fivetwenty-io/sncontent/pkg/snclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := snclient.New(ctx, &snclient.Config{
//	    Repositories: map[string]snclient.RepositoryOptions{
//	      "docs": {
//	        URL:          "https://example.sensenet.cloud",
//	        ClientID:     "client-id",
//	        ClientSecret: "client-secret",
//	      },
//	    },
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // An empty access token selects the registered client credentials.
//	  repo, err := cli.GetRepository(ctx, "docs", "")
//	  if err != nil { log.Fatal(err) }
//
//	  children, err := repo.LoadCollection(ctx, &content.LoadCollectionRequest{
//	    EntityOptions: content.EntityOptions{Path: "/Root/Content"},
//	    QueryOptions:  content.QueryOptions{Top: 10},
//	  })
//	  if err != nil { log.Fatal(err) }
//	  _ = children
//	}
//
// # Tokens
//
// Without a caller token the client asks the server which authority it
// trusts, then runs the OAuth2 client credentials grant against it.
// Authority info is kept for 30 minutes and tokens for 10 minutes per
// server. A server that advertises no authority is used anonymously, or
// with its API key when one is registered.
//
// # Repository handles
//
// Handles are cached per (name, access token) for one hour. A handle for a
// name that is not registered is still returned; its operations fail with
// content.ErrRepositoryNotConfigured.
//
// # Helpers
//
// NewWithEndpoint, NewWithAPIKey and NewWithClientCredentials register a
// single repository under DefaultRepositoryName.
package snclient
