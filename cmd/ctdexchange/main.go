/*
Copyright © 2024 the ctdexchange authors.
This file is part of ctdexchange.

ctdexchange is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ctdexchange is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ctdexchange.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command ctdexchange converts CTD exchange cast files into a multi-profile
// dataset.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/ctdexchange/ctdutil"
)

func main() {
	if err := ctdutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}
