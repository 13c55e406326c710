// Package pixdex embeds hybrid image retrieval in a Go program without
// running the HTTP server.
//
// Images are ranked by blending CLIP visual similarity with similarity over
// the text recognized in them. The client talks to the same Redis, Valkey
// or Postgres backend the pixdex server uses.
//
//	client, _ := pixdex.New(ctx,
//	    pixdex.WithValkey("localhost:6379", ""),
//	    pixdex.WithEmbedder(clip),
//	)
//	defer client.Close()
//
//	client.EnsureIndexes()
//	_ = client.WaitIndexes(ctx)
//	results, _ := client.Retrieve(ctx, "exit sign", 5)
package pixdex
