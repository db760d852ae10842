// Package mirrorlai provides the translation core of a locale-mirroring
// edge proxy.
//
// Mirrorlai collects translatable text from an HTML document, resolves what
// it can from a shared cache, packs the rest into bounded batches, sends
// them one after another to a translation endpoint and writes the results
// back into the live document. Identical strings are requested once and fan
// out to every node that carries them.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/mirrorlai"
//	    "github.com/ZaguanLabs/mirrorlai/processor"
//	    "github.com/ZaguanLabs/mirrorlai/provider"
//	)
//
//	func main() {
//	    client := provider.NewRemoteClient(provider.RemoteConfig{
//	        Endpoint: "https://example.com/api/translate",
//	    })
//
//	    t := mirrorlai.NewTranslator("es_ES", client,
//	        mirrorlai.WithProcessor(processor.NewHTMLProcessor(
//	            processor.WithLocalePaths("es", "en"),
//	        )),
//	    )
//
//	    result, err := t.ProcessHTML(context.Background(), "<p>Contact us</p>")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(result.Content) // <p>Contáctenos</p>
//	}
package mirrorlai
