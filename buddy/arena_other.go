//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

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

// mapArena falls back to a Go heap slice where anonymous mappings are not available.
// The arena holds no Go pointers, so the GC never has to scan it.
func mapArena(n int) (b []byte, release func([]byte) error, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errOutOfMemory
		}
	}()
	return make([]byte, n), func([]byte) error { return nil }, nil
}
