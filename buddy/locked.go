/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package buddy

import "sync"

// Locked serializes access to a Pool with a mutex.
type Locked struct {
	mu sync.Mutex
	p  *Pool
}

// NewLocked wraps p. p must not be used directly afterwards.
func NewLocked(p *Pool) *Locked {
	return &Locked{p: p}
}

// Alloc ... same as Pool.Alloc.
func (l *Locked) Alloc(size int) []byte {
	l.mu.Lock()
	b := l.p.Alloc(size)
	l.mu.Unlock()
	return b
}

// Free ... same as Pool.Free.
func (l *Locked) Free(b []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Free(b)
}

func (l *Locked) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Available()
}

func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Stats()
}

func (l *Locked) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Check()
}

func (l *Locked) Reset() {
	l.mu.Lock()
	l.p.Reset()
	l.mu.Unlock()
}

func (l *Locked) Destroy() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Destroy()
}
