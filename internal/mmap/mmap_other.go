//go:build !unix

package mmap

import "os"

func osMapAnon(int) ([]byte, error) { return nil, ErrUnsupported }

func osUnmap([]byte) error { return ErrUnsupported }

func osPageSize() int { return os.Getpagesize() }
