// canopy-keygen manages the key material around the gateway: the X25519
// host key a gateway decrypts content with, the ed25519 signing keys
// publishers use, and wrapping a content key for a host.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/canopysites/canopy/pkg/contentcrypto"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "host":
		return runHost(args[2:], stdout, stderr)
	case "publisher":
		return runPublisher(stdout, stderr)
	case "wrap":
		return runWrap(args[2:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: canopy-keygen <host|publisher|wrap> [flags]")
	fmt.Fprintln(w, "  host -file <path>         create or show a gateway host key")
	fmt.Fprintln(w, "  publisher                 generate an ed25519 publisher keypair")
	fmt.Fprintln(w, "  wrap -key <hex> -host <b64>  wrap a content key for a host public key")
}

// runHost creates the host keystore if absent and prints the public key id
// (the value publishers key WrappedKeys entries by).
func runHost(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("host", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("file", "canopy-host.key", "keystore file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	key, err := contentcrypto.LoadHostKey(*path)
	if err != nil {
		fmt.Fprintf(stderr, "host key: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "keystore:   %s\n", *path)
	fmt.Fprintf(stdout, "public key: %s\n", key.PublicKeyID())
	return 0
}

func runPublisher(stdout, stderr io.Writer) int {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(stderr, "generate publisher key: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "public key:  %s\n", hex.EncodeToString(pub))
	fmt.Fprintf(stdout, "private key: %s\n", hex.EncodeToString(priv))
	return 0
}

func runWrap(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wrap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keyHex := fs.String("key", "", "content key, hex (32 bytes); empty generates one")
	hostB64 := fs.String("host", "", "host public key, base64 (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *hostB64 == "" {
		fmt.Fprintln(stderr, "wrap: -host is required")
		return 2
	}

	hostPub, err := base64.StdEncoding.DecodeString(*hostB64)
	if err != nil {
		fmt.Fprintf(stderr, "wrap: bad host public key: %v\n", err)
		return 1
	}

	contentKey := make([]byte, contentcrypto.ContentKeySize)
	if *keyHex != "" {
		contentKey, err = hex.DecodeString(*keyHex)
		if err != nil {
			fmt.Fprintf(stderr, "wrap: bad content key: %v\n", err)
			return 1
		}
	} else if _, err := rand.Read(contentKey); err != nil {
		fmt.Fprintf(stderr, "wrap: generate content key: %v\n", err)
		return 1
	}

	wrapped, err := contentcrypto.WrapContentKey(contentKey, hostPub)
	if err != nil {
		fmt.Fprintf(stderr, "wrap: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "content key: %s\n", hex.EncodeToString(contentKey))
	fmt.Fprintf(stdout, "wrapped:     %s\n", base64.StdEncoding.EncodeToString(wrapped))
	return 0
}
